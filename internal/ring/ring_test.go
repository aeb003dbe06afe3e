package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The real Linux ring implementations need io_uring_setup, which isn't
// available in every sandbox this module's tests run under (containers
// commonly seccomp-filter it). What's safe to pin down without a kernel
// is the wire contract the completion driver depends on: each Op is
// distinct, and SQE/CQE stay plain value types a driver can stack-allocate
// per submission.
func TestOpValuesAreDistinct(t *testing.T) {
	ops := []Op{
		OpNop, OpAccept, OpConnect, OpRecv, OpSend, OpRead, OpWrite,
		OpClose, OpOpenat, OpUnlinkat, OpMkdirat, OpRenameat, OpPollAdd,
	}
	seen := make(map[Op]bool, len(ops))
	for _, op := range ops {
		require.False(t, seen[op], "duplicate Op value %d", op)
		seen[op] = true
	}
}

func TestSQEZeroValueIsNop(t *testing.T) {
	var sqe SQE
	require.Equal(t, OpNop, sqe.Op)
	require.Zero(t, sqe.Fd)
	require.Zero(t, sqe.UserData)
}
