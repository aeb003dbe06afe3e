package coreio

import (
	"syscall"

	"github.com/behrlich/coreio/internal/errs"
)

// Error and its supporting types live in internal/errs so the driver and
// file-operation packages can construct and classify them without
// importing this root package. See that package's doc comment.

type (
	Error     = errs.Error
	ErrorCode = errs.ErrorCode
)

const (
	ErrWouldBlock        = errs.ErrWouldBlock
	ErrConnectionRefused = errs.ErrConnectionRefused
	ErrConnectionReset   = errs.ErrConnectionReset
	ErrTimedOut          = errs.ErrTimedOut
	ErrInterrupted       = errs.ErrInterrupted
	ErrPermissionDenied  = errs.ErrPermissionDenied
	ErrNotFound          = errs.ErrNotFound
	ErrAlreadyExists     = errs.ErrAlreadyExists
	ErrInvalidInput      = errs.ErrInvalidInput
	ErrOther             = errs.ErrOther
)

// NewError creates a structured error with no underlying errno.
func NewError(op string, fd int32, code ErrorCode, msg string) *Error {
	return errs.NewError(op, fd, code, msg)
}

// WrapErrno wraps a raw syscall errno, classifying it into an ErrorCode.
func WrapErrno(op string, fd int32, errno syscall.Errno) *Error {
	return errs.WrapErrno(op, fd, errno)
}

// IsCode reports whether err (or something it wraps) is a *Error with
// the given code.
func IsCode(err error, code ErrorCode) bool {
	return errs.IsCode(err, code)
}

// WrapError wraps an arbitrary error with operation context.
func WrapError(op string, fd int32, inner error) *Error {
	return errs.WrapError(op, fd, inner)
}
