//go:build linux && giouring

package ring

import (
	"time"
	"unsafe"

	giouring "github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/errs"
)

// This file swaps the hand-rolled ring (iouring_linux.go) for
// pawelgaczynski/giouring's SQE/CQE plumbing, the same opt-in split the
// teacher keeps between its hand-rolled minimal.go ring and the
// `//go:build giouring`-gated iouring.go backed by a real io_uring
// library. Selecting this build tag trades the raw-syscall ring above
// for a maintained binding; the Op/SQE/CQE surface callers see through
// the Ring interface is unchanged either way.
type giouringRing struct {
	ring *giouring.Ring
}

// New creates a giouring-backed ring with entries submission slots.
func New(entries uint32) (Ring, error) {
	r, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, errs.WrapError("io_uring_setup", -1, err)
	}
	return &giouringRing{ring: r}, nil
}

func (g *giouringRing) Push(s SQE) bool {
	sqe := g.ring.GetSQE()
	if sqe == nil {
		return false
	}
	switch s.Op {
	case OpNop:
		sqe.PrepareNop()
	case OpAccept:
		sqe.PrepareAccept(s.Fd, s.Addr2, uint64(s.Addr2Len), 0)
	case OpConnect:
		sqe.PrepareConnect(s.Fd, (*unix.RawSockaddrAny)(unsafe.Pointer(s.Addr2)), uint64(s.Addr2Len))
	case OpRecv:
		sqe.PrepareRecv(s.Fd, s.Addr, s.Len, 0)
	case OpSend:
		sqe.PrepareSend(s.Fd, s.Addr, s.Len, 0)
	case OpRead:
		sqe.PrepareRead(s.Fd, s.Addr, s.Len, s.Offset)
	case OpWrite:
		sqe.PrepareWrite(s.Fd, s.Addr, s.Len, s.Offset)
	case OpClose:
		sqe.PrepareClose(s.Fd)
	case OpOpenat:
		sqe.PrepareOpenat(unix.AT_FDCWD, s.Addr, int(s.OpenFlags), uint32(s.Perm))
	case OpUnlinkat:
		sqe.PrepareUnlinkat(unix.AT_FDCWD, s.Addr, s.OpenFlags)
	case OpMkdirat:
		sqe.PrepareMkdirat(unix.AT_FDCWD, s.Addr, uint32(s.Perm))
	case OpRenameat:
		sqe.PrepareRenameat(unix.AT_FDCWD, s.Addr, unix.AT_FDCWD, s.Addr2, 0)
	case OpPollAdd:
		sqe.PreparePollAdd(s.Fd, uint32(s.Len))
	}
	sqe.UserData = s.UserData
	return true
}

func (g *giouringRing) Submit() (int, error) {
	n, err := g.ring.Submit()
	return int(n), err
}

func (g *giouringRing) SubmitAndWait(timeoutNs int64) (int, error) {
	n, err := g.ring.SubmitAndWaitTimeout(1, time.Duration(timeoutNs), nil)
	if err != nil {
		return 0, nil // timeout/interrupt: caller just polls again
	}
	return int(n), nil
}

func (g *giouringRing) PopCompletions(out []CQE) int {
	n := 0
	for n < len(out) {
		cqe, err := g.ring.PeekCQE()
		if err != nil || cqe == nil {
			break
		}
		out[n] = CQE{UserData: cqe.UserData, Res: cqe.Res}
		g.ring.CQESeen(cqe)
		n++
	}
	return n
}

func (g *giouringRing) Close() error {
	g.ring.QueueExit()
	return nil
}

