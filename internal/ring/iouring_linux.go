//go:build linux && !giouring

package ring

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/errs"
)

// This file is the generalization of the teacher's internal/uring
// (go-ublk) minimal.go: the same io_uring_setup + mmap dance, but
// carrying the ordinary 64-byte SQE/16-byte CQE layout instead of the
// SQE128/CQE32 URING_CMD-only variant ublk needs, since coreio submits
// accept/recv/send/read/write/close/openat, not a single control
// opcode. Submission numbers and the mmap offsets below are the kernel
// ABI (include/uapi/linux/io_uring.h), not something this package
// chooses.

const (
	sysIoUringSetup = 425
	sysIoUringEnter = 426

	ioringOffSQRing = 0x0
	ioringOffCQRing = 0x8000000
	ioringOffSQEs   = 0x10000000

	ioringEnterGetEvents = 1 << 0
	ioringEnterExtArg    = 1 << 3

	sqeSize = 64
	cqeSize = 16
)

// kernelTimespec mirrors struct __kernel_timespec (include/uapi/linux/time_types.h).
type kernelTimespec struct {
	sec  int64
	nsec int64
}

// getEventsArg mirrors struct io_uring_getevents_arg, the IORING_ENTER_EXT_ARG
// payload that carries a bounded wait timeout to io_uring_enter instead of
// blocking until min_complete is satisfied.
type getEventsArg struct {
	sigmask   uint64
	sigmaskSz uint32
	pad       uint32
	ts        uint64
}

// kernel opcodes (include/uapi/linux/io_uring.h), independent of this
// package's own Op enum which is the caller-facing simplification.
const (
	kOpNop       = 0
	kOpRead      = 22
	kOpWrite     = 23
	kOpAccept    = 13
	kOpConnect   = 16
	kOpClose     = 19
	kOpRecv      = 27
	kOpSend      = 26
	kOpOpenat    = 18
	kOpUnlinkat  = 36
	kOpMkdirat   = 37
	kOpRenameat  = 35
	kOpPollAdd   = 6
)

var opToKernel = [...]uint8{
	OpNop:      kOpNop,
	OpAccept:   kOpAccept,
	OpConnect:  kOpConnect,
	OpRecv:     kOpRecv,
	OpSend:     kOpSend,
	OpRead:     kOpRead,
	OpWrite:    kOpWrite,
	OpClose:    kOpClose,
	OpOpenat:   kOpOpenat,
	OpUnlinkat: kOpUnlinkat,
	OpMkdirat:  kOpMkdirat,
	OpRenameat: kOpRenameat,
	OpPollAdd:  kOpPollAdd,
}

// sqeLayout mirrors struct io_uring_sqe exactly; field order and sizes
// are the kernel ABI.
type sqeLayout struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opFlags     uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	addr3       uint64
	pad         uint64
}

// cqeLayout mirrors struct io_uring_cqe exactly.
type cqeLayout struct {
	userData uint64
	res      int32
	flags    uint32
}

type sqRingOffsets struct {
	head, tail, ringMask, ringEntries, flags, dropped, array, resv1 uint32
	userAddr                                                        uint64
}

type cqRingOffsets struct {
	head, tail, ringMask, ringEntries, overflow, cqes, flags, resv1 uint32
	userAddr                                                         uint64
}

type params struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFD         uint32
	resv         [3]uint32
	sqOff        sqRingOffsets
	cqOff        cqRingOffsets
}

// hostRing is the hand-rolled Ring implementation: three mmap'd
// regions (SQ ring, SQE array, CQ ring) manipulated with the same raw
// syscalls go-ublk's minimal.go uses for its control-only ring.
type hostRing struct {
	fd int

	sqMem  []byte
	sqeMem []byte
	cqMem  []byte

	sqHead, sqTail, sqMask, sqEntries *uint32
	sqArray                            []uint32
	sqes                               []sqeLayout

	cqHead, cqTail, cqMask, cqEntries *uint32
	cqes                               []cqeLayout

	sqeFill uint32 // next sqes[] slot to populate before Submit publishes it
}

// New creates a real io_uring instance with entries submission slots.
func New(entries uint32) (Ring, error) {
	var p params
	fd, _, errno := syscall.Syscall(sysIoUringSetup, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, errs.WrapErrno("io_uring_setup", -1, errno)
	}

	sqSize := p.sqOff.array + p.sqEntries*4
	cqSize := p.cqOff.cqes + p.cqEntries*uint32(unsafe.Sizeof(cqeLayout{}))
	sqeBytes := p.sqEntries * sqeSize

	sqMem, err := unix.Mmap(int(fd), ioringOffSQRing, int(sqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Close(int(fd))
		return nil, errs.WrapError("mmap sq_ring", -1, err)
	}
	sqeMem, err := unix.Mmap(int(fd), ioringOffSQEs, int(sqeBytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMem)
		unix.Close(int(fd))
		return nil, errs.WrapError("mmap sqes", -1, err)
	}
	cqMem, err := unix.Mmap(int(fd), ioringOffCQRing, int(cqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqeMem)
		unix.Munmap(sqMem)
		unix.Close(int(fd))
		return nil, errs.WrapError("mmap cq_ring", -1, err)
	}

	r := &hostRing{
		fd:     int(fd),
		sqMem:  sqMem,
		sqeMem: sqeMem,
		cqMem:  cqMem,
	}

	sqBase := unsafe.Pointer(&sqMem[0])
	r.sqHead = (*uint32)(unsafe.Add(sqBase, p.sqOff.head))
	r.sqTail = (*uint32)(unsafe.Add(sqBase, p.sqOff.tail))
	r.sqMask = (*uint32)(unsafe.Add(sqBase, p.sqOff.ringMask))
	r.sqEntries = (*uint32)(unsafe.Add(sqBase, p.sqOff.ringEntries))
	arrPtr := unsafe.Add(sqBase, p.sqOff.array)
	r.sqArray = unsafe.Slice((*uint32)(arrPtr), p.sqEntries)
	r.sqes = unsafe.Slice((*sqeLayout)(unsafe.Pointer(&sqeMem[0])), p.sqEntries)

	cqBase := unsafe.Pointer(&cqMem[0])
	r.cqHead = (*uint32)(unsafe.Add(cqBase, p.cqOff.head))
	r.cqTail = (*uint32)(unsafe.Add(cqBase, p.cqOff.tail))
	r.cqMask = (*uint32)(unsafe.Add(cqBase, p.cqOff.ringMask))
	r.cqEntries = (*uint32)(unsafe.Add(cqBase, p.cqOff.ringEntries))
	cqesPtr := unsafe.Add(cqBase, p.cqOff.cqes)
	r.cqes = unsafe.Slice((*cqeLayout)(cqesPtr), p.cqEntries)

	return r, nil
}

func atomicLoad(p *uint32) uint32  { return atomic.LoadUint32(p) }
func atomicStore(p *uint32, v uint32) { atomic.StoreUint32(p, v) }

// Push implements Ring.
func (r *hostRing) Push(s SQE) bool {
	tail := atomicLoad(r.sqTail)
	head := atomicLoad(r.sqHead)
	mask := *r.sqMask
	if tail-head > mask {
		return false // ring full
	}

	idx := tail & mask
	e := &r.sqes[idx]
	*e = sqeLayout{
		opcode:   opToKernel[s.Op],
		fd:       s.Fd,
		off:      s.Offset,
		addr:     uint64(s.Addr),
		len:      s.Len,
		opFlags:  s.OpenFlags,
		userData: s.UserData,
	}
	if s.Op == OpAccept || s.Op == OpConnect {
		e.addr = uint64(s.Addr2)
		e.off = uint64(s.Addr2Len)
	}
	switch s.Op {
	case OpOpenat, OpMkdirat, OpUnlinkat, OpRenameat:
		e.fd = unix.AT_FDCWD
	}
	if s.Op == OpRenameat {
		e.off = uint64(s.Addr2) // the kernel's addr2 shares the off slot
		e.len = uint32(e.fd)    // new-path dirfd, AT_FDCWD as well
	}
	if s.Op == OpOpenat || s.Op == OpMkdirat {
		e.len = s.Perm
	}
	if s.Op == OpPollAdd {
		e.len, e.opFlags = 0, s.Len // Len carries the poll mask
	}
	r.sqArray[idx] = idx
	atomicStore(r.sqTail, tail+1)
	return true
}

// Submit implements Ring.
func (r *hostRing) Submit() (int, error) {
	toSubmit := atomicLoad(r.sqTail) - atomicLoad(r.sqHead)
	n, _, errno := syscall.Syscall6(sysIoUringEnter, uintptr(r.fd), uintptr(toSubmit), 0, 0, 0, 0)
	if errno != 0 {
		return 0, errs.WrapErrno("io_uring_enter", int32(r.fd), errno)
	}
	return int(n), nil
}

// SubmitAndWait implements Ring. It bounds the wait to timeoutNs via
// IORING_ENTER_EXT_ARG's io_uring_getevents_arg/timespec pair rather than
// blocking on min_complete=1 indefinitely: a pure Sleep/Yield workload with
// nothing in flight must still return on schedule so the scheduler can
// service due timers (spec.md §4.7's ~0.5ms poll timeout), the same bound
// giouring_linux.go gets from SubmitAndWaitTimeout.
func (r *hostRing) SubmitAndWait(timeoutNs int64) (int, error) {
	toSubmit := atomicLoad(r.sqTail) - atomicLoad(r.sqHead)
	if timeoutNs < 0 {
		timeoutNs = 0
	}
	ts := kernelTimespec{sec: timeoutNs / int64(1e9), nsec: timeoutNs % int64(1e9)}
	arg := getEventsArg{ts: uint64(uintptr(unsafe.Pointer(&ts)))}
	n, _, errno := syscall.Syscall6(sysIoUringEnter, uintptr(r.fd), uintptr(toSubmit), 1,
		ioringEnterGetEvents|ioringEnterExtArg, uintptr(unsafe.Pointer(&arg)), unsafe.Sizeof(arg))
	if errno != 0 {
		if errno == unix.ETIME || errno == unix.EINTR || errno == unix.EBUSY {
			return 0, nil
		}
		return 0, errs.WrapErrno("io_uring_enter", int32(r.fd), errno)
	}
	return int(n), nil
}

// PopCompletions implements Ring.
func (r *hostRing) PopCompletions(out []CQE) int {
	head := atomicLoad(r.cqHead)
	tail := atomicLoad(r.cqTail)
	mask := *r.cqMask

	n := 0
	for head != tail && n < len(out) {
		e := &r.cqes[head&mask]
		out[n] = CQE{UserData: e.userData, Res: e.res}
		n++
		head++
	}
	if n > 0 {
		atomicStore(r.cqHead, head)
	}
	return n
}

// Close implements Ring.
func (r *hostRing) Close() error {
	unix.Munmap(r.cqMem)
	unix.Munmap(r.sqeMem)
	unix.Munmap(r.sqMem)
	return unix.Close(r.fd)
}
