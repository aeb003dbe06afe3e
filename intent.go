package coreio

import "github.com/behrlich/coreio/internal/proto"

// The Task/Intent/Result protocol lives in internal/proto so both coreio
// (this package) and internal/driver can depend on it without a cycle;
// see that package's doc comment. Everything below is a plain alias so
// callers only ever see the coreio name.

type (
	IntentTag = proto.IntentTag
	Intent    = proto.Intent
	Result    = proto.Result
	Task      = proto.Task
	TaskFunc  = proto.TaskFunc
)

const (
	TagYield         = proto.TagYield
	TagSleep         = proto.TagSleep
	TagNewListener   = proto.TagNewListener
	TagConnect       = proto.TagConnect
	TagAccept        = proto.TagAccept
	TagRead          = proto.TagRead
	TagWrite         = proto.TagWrite
	TagWriteAll      = proto.TagWriteAll
	TagClose         = proto.TagClose
	TagFileOpen      = proto.TagFileOpen
	TagFileRead      = proto.TagFileRead
	TagFilePRead     = proto.TagFilePRead
	TagFileWrite     = proto.TagFileWrite
	TagFilePWrite    = proto.TagFilePWrite
	TagFileWriteAll  = proto.TagFileWriteAll
	TagFilePWriteAll = proto.TagFilePWriteAll
	TagFileClose     = proto.TagFileClose
	TagMkdir         = proto.TagMkdir
	TagRmdir         = proto.TagRmdir
	TagUnlink        = proto.TagUnlink
	TagRename        = proto.TagRename
)
