package sched

import (
	"testing"

	"github.com/behrlich/coreio/internal/proto"
	"github.com/stretchr/testify/require"
)

func taskNamed(name string) proto.Task {
	return proto.TaskFunc(func() (proto.Intent, bool) { return proto.Intent{}, false })
}

func TestReadyQueueFIFO(t *testing.T) {
	q := NewReadyQueue(2)
	a, b, c := taskNamed("a"), taskNamed("b"), taskNamed("c")

	q.Push(a)
	q.Push(b)
	q.Push(c) // forces growth past initial capacity of 2

	require.Equal(t, 3, q.Len())

	got, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, a, got)

	got, ok = q.Pop()
	require.True(t, ok)
	require.Same(t, b, got)

	got, ok = q.Pop()
	require.True(t, ok)
	require.Same(t, c, got)

	_, ok = q.Pop()
	require.False(t, ok, "queue must report empty after draining")
}

func TestReadyQueueWrapAround(t *testing.T) {
	q := NewReadyQueue(4)
	for i := 0; i < 10; i++ {
		q.Push(taskNamed("x"))
		_, _ = q.Pop()
	}
	require.Equal(t, 0, q.Len())
}
