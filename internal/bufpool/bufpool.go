// Package bufpool implements the fixed-capacity buffer pool each core
// draws read/write buffers from. A core's engine owns exactly one Pool
// and never shares it with another core, so the free list needs no
// locking — unlike the teacher's sync.Pool-based buffer pool, which had
// to be safe for concurrent goroutines.
package bufpool

// Buffer is a pool-aware byte buffer. It tracks how much of its backing
// array is valid (written) and how much has already been consumed
// (offset), and whether it came from a Pool so Put can refuse foreign
// buffers. offset <= written <= cap(data) always holds.
type Buffer struct {
	data    []byte
	written int
	offset  int
	pooled  bool
}

// New allocates a standalone buffer of the given capacity, not
// associated with any Pool. Put on a Pool silently drops it instead of
// pooling it.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Bytes returns the unconsumed, valid portion of the buffer.
func (b *Buffer) Bytes() []byte { return b.data[b.offset:b.written] }

// Raw returns the full backing array, for drivers that need to read or
// write starting at an explicit offset instead of b.offset.
func (b *Buffer) Raw() []byte { return b.data }

// Len reports how many valid, unconsumed bytes remain.
func (b *Buffer) Len() int { return b.written - b.offset }

// Cap reports the backing array's capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Written reports how many bytes have been filled in from the start of
// the backing array.
func (b *Buffer) Written() int { return b.written }

// Offset reports how many bytes at the start have already been
// consumed.
func (b *Buffer) Offset() int { return b.offset }

// SetWritten records that n bytes of the backing array are now valid,
// e.g. after a driver completes a read directly into Raw().
func (b *Buffer) SetWritten(n int) { b.written = n }

// Advance consumes n bytes from the front, e.g. after a partial write;
// the next Bytes() call starts n bytes further in.
func (b *Buffer) Advance(n int) { b.offset += n }

// Pooled reports whether Put would actually return this buffer to a
// pool instead of dropping it.
func (b *Buffer) Pooled() bool { return b.pooled }

// Reset rewinds offset and written to zero without reallocating,
// preparing the buffer for reuse.
func (b *Buffer) Reset() {
	b.offset = 0
	b.written = 0
}

// Append grows the buffer to fit p, copying existing valid bytes first.
// Growing always un-pools the buffer: its backing array is replaced, so
// returning it to the original pool's fixed-size free list would be
// wrong. This mirrors the original engine's Buffer::append, which grows
// and marks the buffer as no longer pool-owned on overflow.
func (b *Buffer) Append(p []byte) {
	need := b.written + len(p)
	if need > cap(b.data) {
		grown := make([]byte, need*2)
		copy(grown, b.data[:b.written])
		b.data = grown
		b.pooled = false
	}
	copy(b.data[b.written:need], p)
	b.written = need
}

// Pool is a single free list of fixed-capacity buffers. The zero value
// is not usable; construct with NewPool.
type Pool struct {
	free     []*Buffer
	capacity int
}

// NewPool creates a buffer pool whose buffers all have the given
// capacity, matching the process-wide buffer_length configuration.
func NewPool(capacity int) *Pool {
	return &Pool{capacity: capacity}
}

// Get returns a pooled buffer, allocating a new one if the free list is
// empty.
func (p *Pool) Get() *Buffer {
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		return b
	}
	return &Buffer{data: make([]byte, p.capacity), pooled: true}
}

// Put returns b to the pool if it still has the pool's native capacity
// and originated from a pool; buffers that grew past it (see Append) or
// were constructed with New are dropped instead.
func (p *Pool) Put(b *Buffer) {
	if b == nil || !b.pooled || cap(b.data) != p.capacity {
		return
	}
	b.Reset()
	p.free = append(p.free, b)
}

// Len reports the number of buffers currently sitting in the free list.
func (p *Pool) Len() int { return len(p.free) }
