package coreio

// Listener and Stream (here) and File (file.go) are the thin,
// intent-producing facades spec.md §1 calls out as external
// collaborators to the core: every method here is a one-line
// translation into a Yielder.yield call, with
// no logic of its own beyond shaping the Intent and unwrapping its
// Result. The scheduler, drivers and pools never import this file.

// Listener is a bound, listening TCP acceptor produced by
// Yielder.NewListener.
type Listener struct {
	fd int32
	y  *Yielder
}

// Fd returns the listener's kernel descriptor.
func (l *Listener) Fd() int32 { return l.fd }

// Accept waits for and accepts one inbound connection.
func (l *Listener) Accept() (*Stream, error) {
	r := l.y.yield(Intent{Tag: TagAccept, Fd: l.fd})
	if r.Err != nil {
		return nil, r.Err
	}
	return &Stream{fd: r.Fd, y: l.y}, nil
}

// Close releases the listener's descriptor.
func (l *Listener) Close() error {
	return l.y.yield(Intent{Tag: TagClose, Fd: l.fd}).Err
}

// Stream is a connected TCP socket produced by Yielder.Connect or
// Listener.Accept.
type Stream struct {
	fd int32
	y  *Yielder
}

// Fd returns the stream's kernel descriptor.
func (s *Stream) Fd() int32 { return s.fd }

// Read waits for readable data and fills buf with it. An empty result
// (buf.Len() == 0 on return) means the peer shut the connection down in
// an orderly way (spec.md §8).
func (s *Stream) Read(buf *Buffer) (*Buffer, error) {
	r := s.y.yield(Intent{Tag: TagRead, Fd: s.fd, Buf: buf})
	if r.Err != nil {
		return nil, r.Err
	}
	return buf, nil
}

// Write issues a single write attempt. It returns the same buffer,
// advanced past whatever was written; a nil return means buf was fully
// consumed (spec.md §6: "possibly-unconsumed buffer; absent means fully
// written"). A zero-length buf is a no-op success with no syscall.
func (s *Stream) Write(buf *Buffer) (*Buffer, error) {
	r := s.y.yield(Intent{Tag: TagWrite, Fd: s.fd, Buf: buf})
	if r.Err != nil {
		return nil, r.Err
	}
	if buf.Len() == 0 {
		return nil, nil
	}
	return buf, nil
}

// WriteAll writes every unconsumed byte of buf, looping over short
// writes internally until it is all sent or an error occurs. An empty
// buf is a no-op.
func (s *Stream) WriteAll(buf *Buffer) error {
	return s.y.yield(Intent{Tag: TagWriteAll, Fd: s.fd, Buf: buf}).Err
}

// Close releases the stream's descriptor.
func (s *Stream) Close() error {
	return s.y.yield(Intent{Tag: TagClose, Fd: s.fd}).Err
}
