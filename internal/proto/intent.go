// Package proto defines the Task/Intent/Result protocol the scheduler
// and drivers operate on. It lives under internal so coreio (the public
// facade) and internal/driver can both depend on it without the
// facade-to-driver and driver-to-facade edges forming an import cycle;
// coreio re-exports these types with plain aliases.
package proto

import (
	"time"

	"github.com/behrlich/coreio/internal/bufpool"
)

// IntentTag identifies which operation an Intent describes.
type IntentTag uint8

const (
	// TagYield lets the scheduler run other ready tasks before resuming
	// this one; the task is requeued at the tail of the ready queue.
	TagYield IntentTag = iota
	// TagSleep parks the task in the timer set for Duration.
	TagSleep
	// TagNewListener creates a bound, listening socket.
	TagNewListener
	// TagConnect opens an outbound TCP connection.
	TagConnect
	// TagAccept waits for and accepts one connection from a listener.
	TagAccept
	// TagRead reads into Buf from Fd.
	TagRead
	// TagWrite writes Buf's unconsumed bytes to Fd, possibly partially.
	TagWrite
	// TagWriteAll writes all of Buf's unconsumed bytes to Fd, looping
	// over short writes until it is all sent or an error occurs.
	TagWriteAll
	// TagClose closes Fd.
	TagClose
	// TagFileOpen opens Path with Flags/Perm.
	TagFileOpen
	// TagFileRead reads sequentially into Buf from the open file Fd.
	TagFileRead
	// TagFilePRead reads into Buf from the open file Fd at Offset,
	// without perturbing any sequential read position.
	TagFilePRead
	// TagFileWrite writes Buf sequentially to the open file Fd.
	TagFileWrite
	// TagFilePWrite writes Buf to the open file Fd at Offset.
	TagFilePWrite
	// TagFileWriteAll writes all of Buf sequentially, looping over
	// short writes.
	TagFileWriteAll
	// TagFilePWriteAll writes all of Buf at Offset, looping over short
	// writes starting at increasing offsets.
	TagFilePWriteAll
	// TagFileClose closes the open file Fd.
	TagFileClose
	// TagMkdir creates the directory at Path.
	TagMkdir
	// TagRmdir removes the directory at Path.
	TagRmdir
	// TagUnlink removes the file at Path.
	TagUnlink
	// TagRename renames Path to NewPath.
	TagRename
)

// String renders the tag's operation name, for logging.
func (t IntentTag) String() string {
	switch t {
	case TagYield:
		return "yield"
	case TagSleep:
		return "sleep"
	case TagNewListener:
		return "new_listener"
	case TagConnect:
		return "connect"
	case TagAccept:
		return "accept"
	case TagRead:
		return "read"
	case TagWrite:
		return "write"
	case TagWriteAll:
		return "write_all"
	case TagClose:
		return "close"
	case TagFileOpen:
		return "file_open"
	case TagFileRead:
		return "file_read"
	case TagFilePRead:
		return "file_pread"
	case TagFileWrite:
		return "file_write"
	case TagFilePWrite:
		return "file_pwrite"
	case TagFileWriteAll:
		return "file_write_all"
	case TagFilePWriteAll:
		return "file_pwrite_all"
	case TagFileClose:
		return "file_close"
	case TagMkdir:
		return "mkdir"
	case TagRmdir:
		return "rmdir"
	case TagUnlink:
		return "unlink"
	case TagRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Intent is the single value a Task yields to the scheduler to describe
// the next operation it wants performed. Only the fields relevant to Tag
// are meaningful; it plays the same role as the original engine's
// YieldStatus enum, flattened into one struct the way the teacher flattens
// its ublk command variants into fixed-layout structs instead of a sum
// type.
type Intent struct {
	Tag IntentTag

	// Out is the out-slot the driver or scheduler writes the operation's
	// Result into before requeuing the task. The task itself supplies
	// this slot and reads it back out of its own closure state on its
	// next Step call — it is never passed back as an argument.
	Out *Result

	// Duration is the sleep length for TagSleep.
	Duration time.Duration

	// Addr is a "host:port" address for TagNewListener / TagConnect.
	Addr string

	// Fd is the target descriptor for every per-descriptor operation.
	Fd int32

	// Buf is the buffer to fill (read) or drain (write) for the
	// Read/Write/WriteAll/File* data operations.
	Buf *bufpool.Buffer

	// Offset is the file offset for TagFilePRead / TagFilePWrite /
	// TagFilePWriteAll.
	Offset int64

	// Path is the filesystem path for TagFileOpen / TagMkdir / TagRmdir
	// / TagUnlink / TagRename (the rename source).
	Path string

	// NewPath is the rename destination for TagRename.
	NewPath string

	// Flags holds os.O_* open flags for TagFileOpen.
	Flags int

	// Perm holds the permission bits for TagFileOpen / TagMkdir.
	Perm uint32
}

// Result is the out-slot a driver or the scheduler fills in once an
// Intent completes. A Task reads it through the pointer it passed as
// Intent.Out.
type Result struct {
	// Err is nil on success.
	Err error

	// Fd carries the new descriptor produced by TagNewListener,
	// TagConnect, TagAccept or TagFileOpen.
	Fd int32

	// N is the byte count transferred by a Read/Write-family operation.
	N int
}
