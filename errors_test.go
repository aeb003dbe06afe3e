package coreio

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("read", 7, ErrInvalidInput, "short buffer")
	require.Equal(t, "read", err.Op)
	require.Equal(t, ErrInvalidInput, err.Code)
	require.Equal(t, "coreio: short buffer (op=read)", err.Error())
}

func TestWrapErrno(t *testing.T) {
	err := WrapErrno("connect", 3, syscall.ECONNREFUSED)
	require.Equal(t, ErrConnectionRefused, err.Code)
	require.Equal(t, syscall.ECONNREFUSED, err.Errno)
	require.True(t, errors.Is(err, syscall.ECONNREFUSED))
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := WrapErrno("read", 5, syscall.EAGAIN)
	outer := WrapError("retry", 5, inner)
	require.Equal(t, ErrWouldBlock, outer.Code)
	require.True(t, errors.Is(outer, &Error{Code: ErrWouldBlock}))
}

func TestWrapErrorNil(t *testing.T) {
	require.Nil(t, WrapError("close", 1, nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("sleep", -1, ErrTimedOut, "deadline exceeded")
	require.True(t, IsCode(err, ErrTimedOut))
	require.False(t, IsCode(err, ErrOther))
	require.False(t, IsCode(nil, ErrTimedOut))
}

func TestClassifyErrno(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  ErrorCode
	}{
		{syscall.EAGAIN, ErrWouldBlock},
		{syscall.ECONNREFUSED, ErrConnectionRefused},
		{syscall.ECONNRESET, ErrConnectionReset},
		{syscall.ETIMEDOUT, ErrTimedOut},
		{syscall.EINTR, ErrInterrupted},
		{syscall.EPERM, ErrPermissionDenied},
		{syscall.ENOENT, ErrNotFound},
		{syscall.EEXIST, ErrAlreadyExists},
		{syscall.EINVAL, ErrInvalidInput},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, WrapErrno("op", -1, tc.errno).Code)
	}
}
