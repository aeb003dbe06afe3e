// Package errs defines the structured error type coreio, its drivers
// and its file-operations helper all construct and classify errors
// with. It lives under internal, alongside proto, so every one of those
// packages can depend on it without creating an import cycle back
// through the root coreio package, which re-exports it with aliases.
package errs

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a structured error carrying the operation, descriptor and
// underlying errno that produced it, so callers can branch on Code
// instead of matching strings.
type Error struct {
	Op    string // operation that failed, e.g. "read", "connect", "accept"
	Fd    int32  // descriptor involved, -1 if not applicable
	Code  ErrorCode
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Fd >= 0 {
		parts = append(parts, fmt.Sprintf("fd=%d", e.Fd))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("coreio: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("coreio: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is lets errors.Is match on Code alone, so callers can write
// errors.Is(err, &coreio.Error{Code: coreio.ErrWouldBlock}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is the high-level category of a coreio error, stable across
// platforms even though the underlying errno varies.
type ErrorCode string

const (
	ErrWouldBlock        ErrorCode = "would block"
	ErrConnectionRefused ErrorCode = "connection refused"
	ErrConnectionReset   ErrorCode = "connection reset"
	ErrTimedOut          ErrorCode = "timed out"
	ErrInterrupted       ErrorCode = "interrupted"
	ErrPermissionDenied  ErrorCode = "permission denied"
	ErrNotFound          ErrorCode = "not found"
	ErrAlreadyExists     ErrorCode = "already exists"
	ErrInvalidInput      ErrorCode = "invalid input"
	ErrOther             ErrorCode = "other"
)

// NewError creates a structured error with no underlying errno.
func NewError(op string, fd int32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Fd: fd, Code: code, Msg: msg}
}

// WrapErrno wraps a raw syscall errno, classifying it into an ErrorCode.
func WrapErrno(op string, fd int32, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		Fd:    fd,
		Code:  classifyErrno(errno),
		Errno: errno,
		Msg:   errno.Error(),
		Inner: errno,
	}
}

// WrapError wraps an arbitrary error with operation context. If inner is
// already a *Error its Code, Errno and Msg carry over and only Op and Fd
// are replaced.
func WrapError(op string, fd int32, inner error) *Error {
	if inner == nil {
		return nil
	}
	var ce *Error
	if errors.As(inner, &ce) {
		return &Error{Op: op, Fd: fd, Code: ce.Code, Errno: ce.Errno, Msg: ce.Msg, Inner: ce.Inner}
	}
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return WrapErrno(op, fd, errno)
	}
	return &Error{Op: op, Fd: fd, Code: ErrOther, Msg: inner.Error(), Inner: inner}
}

func classifyErrno(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EAGAIN:
		return ErrWouldBlock
	case syscall.ECONNREFUSED:
		return ErrConnectionRefused
	case syscall.ECONNRESET, syscall.EPIPE:
		return ErrConnectionReset
	case syscall.ETIMEDOUT:
		return ErrTimedOut
	case syscall.EINTR:
		return ErrInterrupted
	case syscall.EPERM, syscall.EACCES:
		return ErrPermissionDenied
	case syscall.ENOENT:
		return ErrNotFound
	case syscall.EEXIST:
		return ErrAlreadyExists
	case syscall.EINVAL:
		return ErrInvalidInput
	default:
		return ErrOther
	}
}

// IsCode reports whether err (or something it wraps) is a *Error with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
