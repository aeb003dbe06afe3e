//go:build !unix

package fileops

import (
	"github.com/behrlich/coreio/internal/errs"
	"github.com/behrlich/coreio/internal/proto"
)

// Apply reports ErrOther on platforms without a POSIX filesystem
// syscall layer; coreio's file operations are unix-only, matching
// spec.md's scope (the original engine is unix-only too).
func Apply(intent proto.Intent) {
	if intent.Out != nil {
		intent.Out.Err = errs.NewError(intent.Tag.String(), intent.Fd, errs.ErrOther, "file operations are not supported on this platform")
	}
}

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
