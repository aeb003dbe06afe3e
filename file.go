package coreio

import "os"

// OpenOptions mirrors spec.md §6's Open exactly: the recognized options
// are read, write, append, truncate, create, create_new and
// custom_flags, nothing more. Perm supplies the mode bits used only
// when Create or CreateNew actually creates the file.
type OpenOptions struct {
	Read        bool
	Write       bool
	Append      bool
	Truncate    bool
	Create      bool
	CreateNew   bool
	CustomFlags int
	Perm        uint32
}

// flags translates the option set into POSIX open(2) flags.
func (o OpenOptions) flags() int {
	var f int
	switch {
	case o.Read && o.Write:
		f |= os.O_RDWR
	case o.Write:
		f |= os.O_WRONLY
	default:
		f |= os.O_RDONLY
	}
	if o.Append {
		f |= os.O_APPEND
	}
	if o.Truncate {
		f |= os.O_TRUNC
	}
	if o.Create {
		f |= os.O_CREATE
	}
	if o.CreateNew {
		f |= os.O_CREATE | os.O_EXCL
	}
	return f | o.CustomFlags
}

// permOr returns the caller's Perm, or def when it wasn't set.
func (o OpenOptions) permOr(def uint32) uint32 {
	if o.Perm != 0 {
		return o.Perm
	}
	return def
}

// File is an open file descriptor produced by Yielder.Open. Unlike
// Stream, every operation may carry an explicit offset (PRead/PWrite);
// the plain Read/Write variants use the kernel's current-position
// convention instead of tracking a cursor themselves (spec.md §4.7,
// §9 — the same -1-offset convention preadv2/pwritev2 and io_uring use).
type File struct {
	fd int32
	y  *Yielder
}

// Fd returns the file's kernel descriptor.
func (f *File) Fd() int32 { return f.fd }

// Read reads at the file's current position into buf.
func (f *File) Read(buf *Buffer) (*Buffer, error) {
	r := f.y.yield(Intent{Tag: TagFileRead, Fd: f.fd, Buf: buf})
	if r.Err != nil {
		return nil, r.Err
	}
	return buf, nil
}

// PRead reads into buf starting at the given absolute offset, leaving
// the file's current position untouched.
func (f *File) PRead(buf *Buffer, offset int64) (*Buffer, error) {
	r := f.y.yield(Intent{Tag: TagFilePRead, Fd: f.fd, Buf: buf, Offset: offset})
	if r.Err != nil {
		return nil, r.Err
	}
	return buf, nil
}

// Write issues a single write at the file's current position. A nil
// return means buf was fully consumed, same convention as Stream.Write.
func (f *File) Write(buf *Buffer) (*Buffer, error) {
	r := f.y.yield(Intent{Tag: TagFileWrite, Fd: f.fd, Buf: buf})
	if r.Err != nil {
		return nil, r.Err
	}
	if buf.Len() == 0 {
		return nil, nil
	}
	return buf, nil
}

// PWrite issues a single write at the given absolute offset.
func (f *File) PWrite(buf *Buffer, offset int64) (*Buffer, error) {
	r := f.y.yield(Intent{Tag: TagFilePWrite, Fd: f.fd, Buf: buf, Offset: offset})
	if r.Err != nil {
		return nil, r.Err
	}
	if buf.Len() == 0 {
		return nil, nil
	}
	return buf, nil
}

// WriteAll writes every unconsumed byte of buf at the file's current
// position, looping over short writes internally.
func (f *File) WriteAll(buf *Buffer) error {
	return f.y.yield(Intent{Tag: TagFileWriteAll, Fd: f.fd, Buf: buf}).Err
}

// PWriteAll writes every unconsumed byte of buf starting at offset.
func (f *File) PWriteAll(buf *Buffer, offset int64) error {
	return f.y.yield(Intent{Tag: TagFilePWriteAll, Fd: f.fd, Buf: buf, Offset: offset}).Err
}

// Close releases the file's descriptor.
func (f *File) Close() error {
	return f.y.yield(Intent{Tag: TagFileClose, Fd: f.fd}).Err
}
