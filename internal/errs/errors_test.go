package errs

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("read", 7, ErrInvalidInput, "short buffer")
	require.Equal(t, "coreio: short buffer (op=read)", err.Error())
}

func TestWrapErrnoClassifies(t *testing.T) {
	err := WrapErrno("connect", 3, syscall.ECONNREFUSED)
	require.Equal(t, ErrConnectionRefused, err.Code)
	require.True(t, errors.Is(err, syscall.ECONNREFUSED))
}

func TestIsMatchesOnCodeOnly(t *testing.T) {
	a := &Error{Code: ErrTimedOut, Op: "sleep"}
	b := &Error{Code: ErrTimedOut, Op: "read"}
	require.True(t, errors.Is(a, b))
}
