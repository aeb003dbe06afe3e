package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type readOp struct {
	fd  int32
	buf []byte
}

func TestPoolReuse(t *testing.T) {
	minted := 0
	p := New(func() *readOp {
		minted++
		return &readOp{}
	})

	a := p.Get()
	require.Equal(t, 1, minted)

	a.fd = 7
	p.Put(a)
	require.Equal(t, 1, p.Len())

	b := p.Get()
	require.Same(t, a, b)
	require.Equal(t, 1, minted, "Get after Put must not mint a new record")
	require.Equal(t, 0, p.Len())
}

func TestPoolMintsWhenEmpty(t *testing.T) {
	p := New(func() *readOp { return &readOp{fd: -1} })
	a := p.Get()
	require.Equal(t, int32(-1), a.fd)
}
