//go:build unix

// Package fileops executes the filesystem-family intents
// (FileOpen/FileRead/.../Rename) that the readiness driver treats as
// synchronous: regular files have no readiness event to wait for, so
// that driver just performs the syscall inline and reports sync=true.
// The completion driver does not use this package; it submits the same
// intents through its ring.
package fileops

import (
	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/errs"
	"github.com/behrlich/coreio/internal/proto"
)

// Apply performs intent's filesystem syscall and fills intent.Out. It
// panics if intent.Tag is not one of the file-family tags; callers are
// expected to have already switched on Tag before calling in.
func Apply(intent proto.Intent) {
	out := intent.Out
	if out == nil {
		return
	}

	switch intent.Tag {
	case proto.TagFileOpen:
		fd, err := unix.Open(intent.Path, intent.Flags, intent.Perm)
		if err != nil {
			out.Err = errs.WrapError("file_open", -1, err)
			return
		}
		out.Fd = int32(fd)

	case proto.TagFileRead:
		n, err := unix.Read(int(intent.Fd), intent.Buf.Raw()[intent.Buf.Written():intent.Buf.Cap()])
		finishRW(out, intent, n, err, "file_read")

	case proto.TagFilePRead:
		n, err := unix.Pread(int(intent.Fd), intent.Buf.Raw()[intent.Buf.Written():intent.Buf.Cap()], intent.Offset)
		finishRW(out, intent, n, err, "file_pread")

	case proto.TagFileWrite:
		n, err := unix.Write(int(intent.Fd), intent.Buf.Bytes())
		finishWrite(out, intent, n, err, "file_write")

	case proto.TagFilePWrite:
		n, err := unix.Pwrite(int(intent.Fd), intent.Buf.Bytes(), intent.Offset)
		finishWrite(out, intent, n, err, "file_pwrite")

	case proto.TagFileWriteAll:
		writeAllSequential(out, intent)

	case proto.TagFilePWriteAll:
		writeAllAt(out, intent)

	case proto.TagFileClose:
		if err := unix.Close(int(intent.Fd)); err != nil {
			out.Err = errs.WrapError("file_close", intent.Fd, err)
		}

	case proto.TagMkdir:
		if err := unix.Mkdir(intent.Path, intent.Perm); err != nil {
			out.Err = errs.WrapError("mkdir", -1, err)
		}

	case proto.TagRmdir:
		if err := unix.Rmdir(intent.Path); err != nil {
			out.Err = errs.WrapError("rmdir", -1, err)
		}

	case proto.TagUnlink:
		if err := unix.Unlink(intent.Path); err != nil {
			out.Err = errs.WrapError("unlink", -1, err)
		}

	case proto.TagRename:
		if err := unix.Rename(intent.Path, intent.NewPath); err != nil {
			out.Err = errs.WrapError("rename", -1, err)
		}

	default:
		panic("fileops: not a file-family intent")
	}
}

// IsFileTag reports whether tag belongs to the file-family and should
// be routed to Apply instead of the driver's own socket machinery.
func IsFileTag(tag proto.IntentTag) bool {
	switch tag {
	case proto.TagFileOpen, proto.TagFileRead, proto.TagFilePRead,
		proto.TagFileWrite, proto.TagFilePWrite, proto.TagFileWriteAll,
		proto.TagFilePWriteAll, proto.TagFileClose,
		proto.TagMkdir, proto.TagRmdir, proto.TagUnlink, proto.TagRename:
		return true
	default:
		return false
	}
}

func finishRW(out *proto.Result, intent proto.Intent, n int, err error, op string) {
	if err != nil {
		out.Err = errs.WrapError(op, intent.Fd, err)
		return
	}
	out.N = n
	intent.Buf.SetWritten(intent.Buf.Written() + n)
}

func finishWrite(out *proto.Result, intent proto.Intent, n int, err error, op string) {
	if err != nil {
		out.Err = errs.WrapError(op, intent.Fd, err)
		return
	}
	out.N = n
	intent.Buf.Advance(n)
}

func writeAllSequential(out *proto.Result, intent proto.Intent) {
	total := 0
	for intent.Buf.Len() > 0 {
		n, err := unix.Write(int(intent.Fd), intent.Buf.Bytes())
		if err != nil {
			out.Err = errs.WrapError("file_write_all", intent.Fd, err)
			return
		}
		intent.Buf.Advance(n)
		total += n
	}
	out.N = total
}

func writeAllAt(out *proto.Result, intent proto.Intent) {
	total := 0
	offset := intent.Offset
	for intent.Buf.Len() > 0 {
		n, err := unix.Pwrite(int(intent.Fd), intent.Buf.Bytes(), offset)
		if err != nil {
			out.Err = errs.WrapError("file_pwrite_all", intent.Fd, err)
			return
		}
		intent.Buf.Advance(n)
		offset += int64(n)
		total += n
	}
	out.N = total
}
