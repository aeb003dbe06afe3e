// Package readiness implements the readiness-based I/O driver
// (spec.md §4.6): a one-shot epoll wait per outstanding Accept/Read/
// Connect, with reads filling the caller-owned Buffer the task passed
// in. A descriptor is added to epoll when a wait begins and removed again
// once no wait on it is outstanding. It is the direct generalization
// of gaio's epoll proactor (fdDesc + pending op lists) to coreio's
// intent protocol, with POSIX file operations delegated to
// internal/fileops since regular files have no readiness concept.
package readiness

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/errs"
	"github.com/behrlich/coreio/internal/fileops"
	"github.com/behrlich/coreio/internal/obslog"
	"github.com/behrlich/coreio/internal/proto"
	"github.com/behrlich/coreio/internal/state"
)

const maxEvents = 256

type opKind uint8

const (
	opAccept opKind = iota
	opConnect
	opRead
)

// op is one outstanding readiness wait, pool-allocated per variant the
// same way spec.md's state-record design calls for. kind picks which
// syscall completeRead performs once epoll says the fd is ready; a
// single struct covers every variant like the teacher's fixed-layout
// command structs. Write/WriteAll never wait on readiness (spec.md
// §4.6), so there is no opWrite variant here — see submitWrite.
type op struct {
	kind opKind
	task proto.Task
	out  *proto.Result
	buf  *proto.Intent // carries Buf by reference to the original intent, for opRead
}

// fdState tracks, per descriptor, at most one outstanding read-direction
// op and one outstanding connect-in-progress wait — mirroring the
// original engine's epoll selector, which only ever registers EPOLLIN
// (read/accept) interest; write never registers (see submitWrite) and
// close never waits.
type fdState struct {
	fd      int32
	added   bool
	readOp  *op
	writeOp *op // only ever holds an in-flight Connect wait
}

// Driver is the epoll-backed readiness driver.
type Driver struct {
	epfd     int
	fds      map[int32]*fdState
	eventBuf []unix.EpollEvent
	opPool   *state.Pool[op]
	log      obslog.Logger
	pending  int
}

// New creates an epoll instance and its bookkeeping.
func New(log obslog.Logger) (*Driver, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errs.WrapError("epoll_create1", -1, err)
	}
	if log == nil {
		log = obslog.Nop()
	}
	return &Driver{
		epfd:     epfd,
		fds:      make(map[int32]*fdState),
		eventBuf: make([]unix.EpollEvent, maxEvents),
		opPool:   state.New(func() *op { return &op{} }),
		log:      log,
	}, nil
}

var _ driver.Driver = (*Driver)(nil)

// Pending reports outstanding operations.
func (d *Driver) Pending() int { return d.pending }

// Close releases the epoll fd. It does not close descriptors the
// caller registered; ownership of those stays with whoever opened them.
func (d *Driver) Close() error {
	return unix.Close(d.epfd)
}

func (d *Driver) ensure(fd int32) *fdState {
	fs := d.fds[fd]
	if fs == nil {
		fs = &fdState{fd: fd}
		d.fds[fd] = fs
	}
	return fs
}

// ctl (re)arms epoll for fs's current read/write interest, one-shot.
// Descriptors with no interest left are removed instead.
func (d *Driver) ctl(fs *fdState) error {
	var events uint32
	if fs.readOp != nil {
		events |= unix.EPOLLIN
	}
	if fs.writeOp != nil {
		events |= unix.EPOLLOUT
	}
	if events == 0 {
		if fs.added {
			fs.added = false
			err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, int(fs.fd), nil)
			delete(d.fds, fs.fd)
			return err
		}
		delete(d.fds, fs.fd)
		return nil
	}
	events |= unix.EPOLLONESHOT
	ev := unix.EpollEvent{Events: events, Fd: fs.fd}
	ctlOp := unix.EPOLL_CTL_MOD
	if !fs.added {
		ctlOp = unix.EPOLL_CTL_ADD
		fs.added = true
	}
	return unix.EpollCtl(d.epfd, ctlOp, int(fs.fd), &ev)
}

// Submit implements driver.Driver.
func (d *Driver) Submit(task proto.Task, intent proto.Intent) (bool, error) {
	if fileops.IsFileTag(intent.Tag) {
		fileops.Apply(intent)
		return true, nil
	}

	switch intent.Tag {
	case proto.TagNewListener:
		return d.newListener(intent)
	case proto.TagConnect:
		return d.submitConnect(task, intent)
	case proto.TagAccept:
		return d.submitAccept(task, intent)
	case proto.TagRead:
		return d.submitRead(task, intent)
	case proto.TagWrite, proto.TagWriteAll:
		return d.submitWrite(intent)
	case proto.TagClose:
		return d.submitClose(intent)
	default:
		return false, errs.NewError(intent.Tag.String(), intent.Fd, errs.ErrInvalidInput, "unsupported intent for readiness driver")
	}
}

func (d *Driver) newListener(intent proto.Intent) (bool, error) {
	sa, family, err := resolveSockaddr(intent.Addr)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		intent.Out.Err = errs.WrapError("socket", -1, err)
		return true, nil
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		intent.Out.Err = errs.WrapError("bind", -1, err)
		return true, nil
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		intent.Out.Err = errs.WrapError("listen", -1, err)
		return true, nil
	}
	intent.Out.Fd = int32(fd)
	return true, nil
}

func (d *Driver) submitConnect(task proto.Task, intent proto.Intent) (bool, error) {
	sa, family, err := resolveSockaddr(intent.Addr)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		intent.Out.Err = errs.WrapError("socket", -1, err)
		return true, nil
	}
	connErr := unix.Connect(fd, sa)
	if connErr == nil {
		intent.Out.Fd = int32(fd)
		return true, nil
	}
	if connErr != unix.EINPROGRESS {
		_ = unix.Close(fd)
		intent.Out.Err = errs.WrapError("connect", -1, connErr)
		return true, nil
	}
	fs := d.ensure(int32(fd))
	o := d.opPool.Get()
	*o = op{kind: opConnect, task: task, out: intent.Out}
	fs.writeOp = o
	d.pending++
	if err := d.ctl(fs); err != nil {
		return false, errs.WrapError("epoll_ctl", int32(fd), err)
	}
	return false, nil
}

func (d *Driver) submitAccept(task proto.Task, intent proto.Intent) (bool, error) {
	fs := d.ensure(intent.Fd)
	o := d.opPool.Get()
	*o = op{kind: opAccept, task: task, out: intent.Out}
	fs.readOp = o
	d.pending++
	if err := d.ctl(fs); err != nil {
		return false, errs.WrapError("epoll_ctl", intent.Fd, err)
	}
	return false, nil
}

func (d *Driver) submitRead(task proto.Task, intent proto.Intent) (bool, error) {
	fs := d.ensure(intent.Fd)
	o := d.opPool.Get()
	in := intent
	*o = op{kind: opRead, task: task, out: intent.Out, buf: &in}
	fs.readOp = o
	d.pending++
	if err := d.ctl(fs); err != nil {
		return false, errs.WrapError("epoll_ctl", intent.Fd, err)
	}
	return false, nil
}

// submitWrite performs the write syscall(s) synchronously and returns
// control to the task immediately: spec.md §4.6 is explicit that
// Write/WriteAll/Close "do not register" for readiness and are processed
// "inside poll" unconditionally, never waiting for an EPOLLOUT event
// first. The original engine's EpolledSelector.write/write_all push onto
// unhandled_states and are drained with a plain write(2) regardless of
// whether the fd is actually writable, so a short write (or EAGAIN) is
// surfaced as-is rather than triggering a wait-then-retry. A zero-length
// buffer is a no-op: success, no syscall (spec.md §8).
func (d *Driver) submitWrite(intent proto.Intent) (bool, error) {
	buf := intent.Buf
	if intent.Tag == proto.TagWriteAll {
		for buf.Len() > 0 {
			n, err := unix.Write(int(intent.Fd), buf.Bytes())
			if err != nil {
				intent.Out.Err = errs.WrapError("write", intent.Fd, err)
				return true, nil
			}
			buf.Advance(n)
			intent.Out.N += n
		}
		return true, nil
	}
	if buf.Len() == 0 {
		return true, nil
	}
	n, err := unix.Write(int(intent.Fd), buf.Bytes())
	if err != nil {
		intent.Out.Err = errs.WrapError("write", intent.Fd, err)
		return true, nil
	}
	intent.Out.N = n
	buf.Advance(n)
	return true, nil
}

// submitClose deregisters fd's readiness interest, sets SO_LINGER{1,0}
// so the close performs an abortive RST instead of a graceful FIN/lingering
// close (spec.md §4.6: "performs the SO_LINGER=0 close"), then closes it.
// Setting linger on a non-socket fd (a listener's accepted fd is always a
// socket, so this only ever runs against sockets) would fail ENOTSOCK;
// the error is intentionally discarded since close still needs to happen.
func (d *Driver) submitClose(intent proto.Intent) (bool, error) {
	if fs, ok := d.fds[intent.Fd]; ok {
		fs.readOp, fs.writeOp = nil, nil
		_ = d.ctl(fs)
	}
	_ = unix.SetsockoptLinger(int(intent.Fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0})
	if err := unix.Close(int(intent.Fd)); err != nil {
		intent.Out.Err = errs.WrapError("close", intent.Fd, err)
	}
	return true, nil
}

// Poll implements driver.Driver.
func (d *Driver) Poll(timeout time.Duration) ([]driver.Completion, error) {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(d.epfd, d.eventBuf, msec)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, errs.WrapError("epoll_wait", -1, err)
	}

	var completions []driver.Completion
	for i := 0; i < n; i++ {
		ev := d.eventBuf[i]
		fs := d.fds[ev.Fd]
		if fs == nil {
			continue
		}
		if fs.readOp != nil && ev.Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			completions = append(completions, d.finishRead(fs))
		}
		if fs.writeOp != nil && ev.Events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			completions = append(completions, d.finishConnect(fs))
		}
		_ = d.ctl(fs)
	}
	return completions, nil
}

func (d *Driver) finishRead(fs *fdState) driver.Completion {
	o := fs.readOp
	fs.readOp = nil
	d.pending--

	switch o.kind {
	case opAccept:
		nfd, _, err := unix.Accept4(int(fs.fd), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			o.out.Err = errs.WrapError("accept", fs.fd, err)
		} else {
			o.out.Fd = int32(nfd)
		}
	case opRead:
		buf := o.buf.Buf
		n, err := unix.Read(int(fs.fd), buf.Raw()[buf.Written():buf.Cap()])
		if err != nil {
			o.out.Err = errs.WrapError("read", fs.fd, err)
		} else {
			o.out.N = n
			buf.SetWritten(buf.Written() + n)
		}
	}
	task := o.task
	d.opPool.Put(o)
	return driver.Completion{Task: task}
}

// finishConnect resolves a nonblocking connect's EPOLLOUT wait. It is the
// only kind fs.writeOp ever carries now that Write/WriteAll resolve
// synchronously in submitWrite without registering for readiness.
func (d *Driver) finishConnect(fs *fdState) driver.Completion {
	o := fs.writeOp
	fs.writeOp = nil
	d.pending--

	errno, gerr := unix.GetsockoptInt(int(fs.fd), unix.SOL_SOCKET, unix.SO_ERROR)
	if gerr != nil {
		o.out.Err = errs.WrapError("connect", fs.fd, gerr)
	} else if errno != 0 {
		o.out.Err = errs.WrapError("connect", fs.fd, syscall.Errno(errno))
	} else {
		o.out.Fd = fs.fd
	}

	task := o.task
	d.opPool.Put(o)
	return driver.Completion{Task: task}
}

func resolveSockaddr(addr string) (unix.Sockaddr, int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, 0, errs.WrapError("resolve", -1, err)
	}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	ip6 := tcpAddr.IP.To16()
	if ip6 == nil {
		ip6 = net.IPv6zero
	}
	sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
	copy(sa.Addr[:], ip6)
	return sa, unix.AF_INET6, nil
}
