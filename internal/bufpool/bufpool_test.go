package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolReusesBuffers(t *testing.T) {
	p := NewPool(64)
	b1 := p.Get()
	require.Equal(t, 64, b1.Cap())
	require.True(t, b1.Pooled())

	p.Put(b1)
	require.Equal(t, 1, p.Len())

	b2 := p.Get()
	require.Same(t, b1, b2)
	require.Equal(t, 0, p.Len())
}

func TestPutDropsForeignBuffer(t *testing.T) {
	p := NewPool(64)
	foreign := New(64)
	p.Put(foreign)
	require.Equal(t, 0, p.Len(), "a buffer not sourced from the pool must not be pooled")
}

func TestAppendGrowsAndUnpools(t *testing.T) {
	p := NewPool(4)
	b := p.Get()
	b.SetWritten(4)
	b.Append([]byte("hello"))
	require.Equal(t, 9, b.Written())
	require.False(t, b.Pooled(), "growing past capacity must un-pool the buffer")

	p.Put(b)
	require.Equal(t, 0, p.Len(), "a grown buffer must not re-enter the fixed-size free list")
}

func TestAdvanceAndReset(t *testing.T) {
	b := New(8)
	b.SetWritten(8)
	b.Advance(3)
	require.Equal(t, 5, b.Len())
	b.Reset()
	require.Equal(t, 0, b.Len())
}
