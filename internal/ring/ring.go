// Package ring defines the minimal submission/completion-queue
// abstraction the completion driver (internal/completion) submits
// kernel operations through. It mirrors the teacher's uring.Ring seam
// (internal/uring.Ring in go-ublk): one interface, two implementations
// picked by build tag — a hand-rolled ring grounded on the teacher's
// minimal.go io_uring_setup/mmap plumbing, and an optional
// giouring-backed one for builds that opt into the real library.
package ring

// Op identifies which io_uring opcode an SQE should carry. Unlike the
// teacher's ublk rings, which only ever submit one opcode
// (IORING_OP_URING_CMD), coreio's completion driver needs the ordinary
// data-plane opcodes.
type Op uint8

const (
	OpNop Op = iota
	OpAccept
	OpConnect
	OpRecv
	OpSend
	OpRead
	OpWrite
	OpClose
	OpOpenat
	OpUnlinkat
	OpMkdirat
	OpRenameat
	OpPollAdd
)

// SQE is a submission request, kept deliberately flatter than the real
// kernel struct: callers fill in only the fields their Op needs and the
// ring implementation packs them into the real 64-byte layout.
type SQE struct {
	Op       Op
	Fd       int32
	Addr     uintptr // primary buffer/path pointer
	Len      uint32
	Offset   uint64
	UserData uint64

	// Addr2 carries the sockaddr pointer for OpAccept/OpConnect and the
	// second path pointer for OpRenameat. The "at" family
	// (OpOpenat/OpMkdirat/OpUnlinkat/OpRenameat) always resolves paths
	// against AT_FDCWD, which the ring implementation fills in itself,
	// since coreio only deals in absolute/relative-to-cwd paths.
	Addr2    uintptr
	Addr2Len uint32

	OpenFlags uint32 // O_* flags for OpOpenat, AT_* flags for OpUnlinkat
	Perm      uint32 // mode bits for OpOpenat/OpMkdirat
}

// CQE is one completion: the user-data the matching SQE carried, and
// the syscall return value (negative errno on failure).
type CQE struct {
	UserData uint64
	Res      int32
}

// Ring is the submission/completion pair one completion driver owns.
// Implementations are not safe for concurrent use; exactly like every
// other per-core component in this module, a Ring belongs to one
// scheduler thread.
type Ring interface {
	// Push stages sqe for the next Submit call. It returns false if the
	// submission queue is full; the caller is expected to backlog the
	// entry and retry after a Submit, mirroring the original engine's
	// io_uring.rs backlog VecDeque.
	Push(sqe SQE) bool

	// Submit flushes staged entries to the kernel without waiting for
	// any completion.
	Submit() (int, error)

	// SubmitAndWait flushes staged entries and blocks for at most
	// timeoutNs nanoseconds for at least one completion to land,
	// returning (0, nil) on a plain timeout rather than an error: the
	// completion driver calls this once per Poll tick even when nothing
	// is outstanding, so a bounded wait (spec.md §4.7's ~0.5ms) is what
	// lets a pure Sleep/Yield workload keep making progress instead of
	// blocking forever for a completion that will never arrive.
	SubmitAndWait(timeoutNs int64) (int, error)

	// PopCompletions drains up to len(out) pending completions into out
	// and returns how many were written.
	PopCompletions(out []CQE) int

	// Close releases the ring's kernel resources.
	Close() error
}
