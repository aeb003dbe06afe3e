// Package completion implements the io_uring-style completion driver
// (spec.md §4.7): every operation is submitted to the kernel ring and
// resolved by a completion event instead of a readiness notification.
// Unlike internal/readiness, this driver also submits the filesystem
// family of intents through the ring (OpOpenat/OpRead/OpWrite/...)
// rather than performing them synchronously, since the whole point of
// a completion-based design is that even operations with no "wait for
// readiness" concept still go through the same submit/complete pipeline.
package completion

import (
	"net"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/errs"
	"github.com/behrlich/coreio/internal/obslog"
	"github.com/behrlich/coreio/internal/proto"
	"github.com/behrlich/coreio/internal/ring"
)

// pollTimeout mirrors the ~0.5ms SubmitArgs timeout the original
// io_uring selector submits with (spec.md §4.7).
const pollTimeout = 500 * time.Microsecond

type opKind uint8

const (
	kAccept opKind = iota
	kConnect
	kPoll // first stage of a read: wait for POLLIN, then upgrade to kRecv
	kRecv
	kSend
	kFileRead
	kFileWrite
	kClose
	kOpen
	kMkdir
	kUnlink
	kRename
)

// op is the one state-record shape every outstanding completion-driver
// operation is pool-allocated into, addressed by slot index rather than
// by raw pointer (spec.md §9's arena-plus-generational-index strategy
// for "raw pointer as handle" in a language without free address
// stability guarantees... except Go's GC never relocates heap objects,
// so a slot index is only needed to keep user-data a plain uint64 for
// the kernel, not because addresses move).
type op struct {
	kind     opKind
	task     proto.Task
	out      *proto.Result
	fd       int32
	buf      ringBuf
	writeAll bool
	sequential bool // true for TagFileWrite/TagFileWriteAll (kernel-tracked offset)
	offset   int64
	path     []byte
	newPath  []byte
	flags    int32
	perm     uint32
	sockaddr unix.RawSockaddrAny
}

// ringBuf is the minimal view completion needs of a bufpool.Buffer
// without importing it directly by concrete type, so tests can swap in
// a fake. It is satisfied by *bufpool.Buffer.
type ringBuf interface {
	Raw() []byte
	Bytes() []byte
	Written() int
	Cap() int
	SetWritten(int)
	Advance(int)
	Len() int
}

// Driver is the io_uring-backed completion driver.
type Driver struct {
	r    ring.Ring
	log  obslog.Logger
	slots []*op
	free  []uint32
	backlog []backlogEntry
	pending int
}

type backlogEntry struct {
	slot uint32
	sqe  ring.SQE
}

var _ driver.Driver = (*Driver)(nil)

// New creates a completion driver backed by a ring of the given depth
// (spec.md requires ≥512; callers are expected to pass that).
func New(entries uint32, log obslog.Logger) (*Driver, error) {
	r, err := ring.New(entries)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obslog.Nop()
	}
	return &Driver{r: r, log: log}, nil
}

// Pending implements driver.Driver.
func (d *Driver) Pending() int { return d.pending }

// Close implements driver.Driver.
func (d *Driver) Close() error { return d.r.Close() }

func (d *Driver) alloc() (uint32, *op) {
	d.pending++
	if n := len(d.free); n > 0 {
		idx := d.free[n-1]
		d.free = d.free[:n-1]
		return idx, d.slots[idx]
	}
	idx := uint32(len(d.slots))
	d.slots = append(d.slots, &op{})
	return idx, d.slots[idx]
}

func (d *Driver) release(idx uint32) {
	*d.slots[idx] = op{}
	d.free = append(d.free, idx)
	d.pending--
}

// push stages sqe, backlogging it if the ring is momentarily full,
// exactly as the original engine's io_uring.rs VecDeque backlog does.
func (d *Driver) push(slot uint32, sqe ring.SQE) {
	sqe.UserData = uint64(slot)
	if d.r.Push(sqe) {
		return
	}
	d.backlog = append(d.backlog, backlogEntry{slot: slot, sqe: sqe})
}

// Submit implements driver.Driver.
func (d *Driver) Submit(task proto.Task, intent proto.Intent) (bool, error) {
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
		return d.submitSend(task, intent)
	case proto.TagClose:
		return d.submitClose(task, intent, kClose)
	case proto.TagFileOpen:
		return d.submitOpen(task, intent)
	case proto.TagFileRead:
		return d.submitFileRead(task, intent, -1)
	case proto.TagFilePRead:
		return d.submitFileRead(task, intent, intent.Offset)
	case proto.TagFileWrite, proto.TagFileWriteAll:
		return d.submitFileWrite(task, intent, -1, intent.Tag == proto.TagFileWriteAll)
	case proto.TagFilePWrite, proto.TagFilePWriteAll:
		return d.submitFileWrite(task, intent, intent.Offset, intent.Tag == proto.TagFilePWriteAll)
	case proto.TagFileClose:
		return d.submitClose(task, intent, kClose)
	case proto.TagMkdir:
		return d.submitMkdir(task, intent)
	case proto.TagRmdir:
		return d.submitUnlink(task, intent, unix.AT_REMOVEDIR)
	case proto.TagUnlink:
		return d.submitUnlink(task, intent, 0)
	case proto.TagRename:
		return d.submitRename(task, intent)
	default:
		return false, errs.NewError(intent.Tag.String(), intent.Fd, errs.ErrInvalidInput, "unsupported intent for completion driver")
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
	slot, o := d.alloc()
	*o = op{kind: kConnect, task: task, out: intent.Out, fd: int32(fd)}
	rawSA, saLen := packSockaddr(sa)
	o.sockaddr = rawSA
	d.push(slot, ring.SQE{
		Op:       ring.OpConnect,
		Fd:       int32(fd),
		Addr2:    uintptr(unsafe.Pointer(&o.sockaddr)),
		Addr2Len: saLen,
	})
	return false, nil
}

func (d *Driver) submitAccept(task proto.Task, intent proto.Intent) (bool, error) {
	slot, o := d.alloc()
	*o = op{kind: kAccept, task: task, out: intent.Out, fd: intent.Fd}
	d.push(slot, ring.SQE{Op: ring.OpAccept, Fd: intent.Fd})
	return false, nil
}

func (d *Driver) submitRead(task proto.Task, intent proto.Intent) (bool, error) {
	slot, o := d.alloc()
	*o = op{kind: kPoll, task: task, out: intent.Out, fd: intent.Fd, buf: intent.Buf}
	d.push(slot, ring.SQE{Op: ring.OpPollAdd, Fd: intent.Fd, Len: unix.POLLIN})
	return false, nil
}

func (d *Driver) submitSend(task proto.Task, intent proto.Intent) (bool, error) {
	if intent.Buf.Len() == 0 {
		return true, nil // spec.md §8: zero-length write is a no-op success
	}
	slot, o := d.alloc()
	*o = op{kind: kSend, task: task, out: intent.Out, fd: intent.Fd, buf: intent.Buf, writeAll: intent.Tag == proto.TagWriteAll}
	d.pushSend(slot, o)
	return false, nil
}

func (d *Driver) pushSend(slot uint32, o *op) {
	b := o.buf.Bytes()
	var addr uintptr
	if len(b) > 0 {
		addr = uintptr(unsafe.Pointer(&b[0]))
	}
	d.push(slot, ring.SQE{Op: ring.OpSend, Fd: o.fd, Addr: addr, Len: uint32(len(b))})
}

func (d *Driver) submitClose(task proto.Task, intent proto.Intent, kind opKind) (bool, error) {
	slot, o := d.alloc()
	*o = op{kind: kind, task: task, out: intent.Out, fd: intent.Fd}
	d.push(slot, ring.SQE{Op: ring.OpClose, Fd: intent.Fd})
	return false, nil
}

func (d *Driver) submitOpen(task proto.Task, intent proto.Intent) (bool, error) {
	pathC, err := nulTerminate(intent.Path)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	slot, o := d.alloc()
	*o = op{kind: kOpen, task: task, out: intent.Out, path: pathC, flags: int32(intent.Flags), perm: intent.Perm}
	d.push(slot, ring.SQE{
		Op:        ring.OpOpenat,
		Addr:      uintptr(unsafe.Pointer(&o.path[0])),
		OpenFlags: uint32(intent.Flags),
		Perm:      intent.Perm,
	})
	return false, nil
}

func (d *Driver) submitFileRead(task proto.Task, intent proto.Intent, offset int64) (bool, error) {
	slot, o := d.alloc()
	*o = op{kind: kFileRead, task: task, out: intent.Out, fd: intent.Fd, buf: intent.Buf, offset: offset}
	d.pushFileRead(slot, o)
	return false, nil
}

func (d *Driver) pushFileRead(slot uint32, o *op) {
	raw := o.buf.Raw()[o.buf.Written():o.buf.Cap()]
	var addr uintptr
	if len(raw) > 0 {
		addr = uintptr(unsafe.Pointer(&raw[0]))
	}
	d.push(slot, ring.SQE{Op: ring.OpRead, Fd: o.fd, Addr: addr, Len: uint32(len(raw)), Offset: encodeOffset(o.offset)})
}

func (d *Driver) submitFileWrite(task proto.Task, intent proto.Intent, offset int64, all bool) (bool, error) {
	if intent.Buf.Len() == 0 {
		return true, nil
	}
	slot, o := d.alloc()
	*o = op{kind: kFileWrite, task: task, out: intent.Out, fd: intent.Fd, buf: intent.Buf, offset: offset, writeAll: all, sequential: offset < 0}
	d.pushFileWrite(slot, o)
	return false, nil
}

func (d *Driver) pushFileWrite(slot uint32, o *op) {
	b := o.buf.Bytes()
	var addr uintptr
	if len(b) > 0 {
		addr = uintptr(unsafe.Pointer(&b[0]))
	}
	d.push(slot, ring.SQE{Op: ring.OpWrite, Fd: o.fd, Addr: addr, Len: uint32(len(b)), Offset: encodeOffset(o.offset)})
}

func (d *Driver) submitMkdir(task proto.Task, intent proto.Intent) (bool, error) {
	pathC, err := nulTerminate(intent.Path)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	slot, o := d.alloc()
	*o = op{kind: kMkdir, task: task, out: intent.Out, path: pathC, perm: intent.Perm}
	d.push(slot, ring.SQE{Op: ring.OpMkdirat, Addr: uintptr(unsafe.Pointer(&o.path[0])), Perm: intent.Perm})
	return false, nil
}

func (d *Driver) submitUnlink(task proto.Task, intent proto.Intent, flags uint32) (bool, error) {
	pathC, err := nulTerminate(intent.Path)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	slot, o := d.alloc()
	*o = op{kind: kUnlink, task: task, out: intent.Out, path: pathC}
	d.push(slot, ring.SQE{Op: ring.OpUnlinkat, Addr: uintptr(unsafe.Pointer(&o.path[0])), OpenFlags: flags})
	return false, nil
}

func (d *Driver) submitRename(task proto.Task, intent proto.Intent) (bool, error) {
	pathC, err := nulTerminate(intent.Path)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	newPathC, err := nulTerminate(intent.NewPath)
	if err != nil {
		intent.Out.Err = err
		return true, nil
	}
	slot, o := d.alloc()
	*o = op{kind: kRename, task: task, out: intent.Out, path: pathC, newPath: newPathC}
	d.push(slot, ring.SQE{
		Op:    ring.OpRenameat,
		Addr:  uintptr(unsafe.Pointer(&o.path[0])),
		Addr2: uintptr(unsafe.Pointer(&o.newPath[0])),
	})
	return false, nil
}

// Poll implements driver.Driver.
func (d *Driver) Poll(timeout time.Duration) ([]driver.Completion, error) {
	d.flushBacklog()

	t := pollTimeout
	if timeout >= 0 && timeout < t {
		t = timeout
	}
	if _, err := d.r.SubmitAndWait(t.Nanoseconds()); err != nil {
		return nil, err
	}

	var cqes [256]ring.CQE
	var completions []driver.Completion
	for {
		n := d.r.PopCompletions(cqes[:])
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			if c, ok := d.handle(cqes[i]); ok {
				completions = append(completions, c)
			}
		}
		if n < len(cqes) {
			break
		}
	}
	return completions, nil
}

func (d *Driver) flushBacklog() {
	kept := d.backlog[:0]
	for _, b := range d.backlog {
		if !d.r.Push(b.sqe) {
			kept = append(kept, b)
		}
	}
	d.backlog = kept
}

func (d *Driver) handle(cqe ring.CQE) (driver.Completion, bool) {
	slot := uint32(cqe.UserData)
	o := d.slots[slot]
	res := cqe.Res

	if res < 0 {
		o.out.Err = errs.WrapErrno(opLabel(o.kind), o.fd, syscall.Errno(-res))
		task := o.task
		d.release(slot)
		return driver.Completion{Task: task}, true
	}

	switch o.kind {
	case kAccept:
		o.out.Fd = int32(res)
	case kConnect:
		o.out.Fd = o.fd
	case kOpen:
		o.out.Fd = int32(res)
	case kPoll:
		// Upgrade to a Recv now that the fd is readable, mirroring the
		// original engine's State::Poll -> State::Recv transition.
		o.kind = kRecv
		raw := o.buf.Raw()[o.buf.Written():o.buf.Cap()]
		var addr uintptr
		if len(raw) > 0 {
			addr = uintptr(unsafe.Pointer(&raw[0]))
		}
		d.push(slot, ring.SQE{Op: ring.OpRecv, Fd: o.fd, Addr: addr, Len: uint32(len(raw))})
		return driver.Completion{}, false
	case kRecv:
		o.out.N = int(res)
		o.buf.SetWritten(o.buf.Written() + int(res))
	case kSend:
		o.out.N += int(res)
		o.buf.Advance(int(res))
		if o.writeAll && o.buf.Len() > 0 {
			d.pushSend(slot, o)
			return driver.Completion{}, false
		}
	case kFileRead:
		o.out.N = int(res)
		o.buf.SetWritten(o.buf.Written() + int(res))
	case kFileWrite:
		o.out.N += int(res)
		o.buf.Advance(int(res))
		if !o.sequential {
			o.offset += int64(res)
		}
		if o.writeAll && o.buf.Len() > 0 {
			d.pushFileWrite(slot, o)
			return driver.Completion{}, false
		}
	case kClose, kMkdir, kUnlink, kRename:
		// success: nothing to copy into out beyond "no error"
	}

	task := o.task
	d.release(slot)
	return driver.Completion{Task: task}, true
}

func opLabel(k opKind) string {
	switch k {
	case kAccept:
		return "accept"
	case kConnect:
		return "connect"
	case kPoll, kRecv:
		return "read"
	case kSend:
		return "write"
	case kFileRead:
		return "file_read"
	case kFileWrite:
		return "file_write"
	case kClose:
		return "close"
	case kOpen:
		return "file_open"
	case kMkdir:
		return "mkdir"
	case kUnlink:
		return "unlink"
	case kRename:
		return "rename"
	default:
		return "op"
	}
}

// encodeOffset maps coreio's "use the file's current position" sentinel
// (-1) onto the kernel's own -1-offset convention, which io_uring reads
// as "consult and update f_pos", the same way preadv2/pwritev2 treat it.
func encodeOffset(off int64) uint64 {
	if off < 0 {
		return ^uint64(0)
	}
	return uint64(off)
}

func nulTerminate(path string) ([]byte, error) {
	for i := 0; i < len(path); i++ {
		if path[i] == 0 {
			return nil, errs.NewError("path", -1, errs.ErrInvalidInput, "path contains a NUL byte")
		}
	}
	b := make([]byte, len(path)+1)
	copy(b, path)
	return b, nil
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

// packSockaddr renders a unix.Sockaddr into the raw bytes io_uring's
// CONNECT opcode expects a pointer to, since the ring submits a pointer
// and length rather than accepting the interface value readiness's
// unix.Connect helper takes directly.
func packSockaddr(sa unix.Sockaddr) (unix.RawSockaddrAny, uint32) {
	var raw unix.RawSockaddrAny
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		in4 := (*unix.RawSockaddrInet4)(unsafe.Pointer(&raw))
		in4.Family = unix.AF_INET
		in4.Port[0] = byte(s.Port >> 8)
		in4.Port[1] = byte(s.Port)
		copy(in4.Addr[:], s.Addr[:])
		return raw, uint32(unsafe.Sizeof(unix.RawSockaddrInet4{}))
	case *unix.SockaddrInet6:
		in6 := (*unix.RawSockaddrInet6)(unsafe.Pointer(&raw))
		in6.Family = unix.AF_INET6
		in6.Port[0] = byte(s.Port >> 8)
		in6.Port[1] = byte(s.Port)
		copy(in6.Addr[:], s.Addr[:])
		return raw, uint32(unsafe.Sizeof(unix.RawSockaddrInet6{}))
	default:
		return raw, 0
	}
}
