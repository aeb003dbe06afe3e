package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerSetOrdersByDeadline(t *testing.T) {
	ts := NewTimerSet()
	base := time.Unix(0, 0)

	late := taskNamed("late")
	mid := taskNamed("mid")
	early := taskNamed("early")

	ts.Add(late, base.Add(300*time.Millisecond))
	ts.Add(early, base.Add(100*time.Millisecond))
	ts.Add(mid, base.Add(200*time.Millisecond))

	due := ts.PopExpired(base.Add(250 * time.Millisecond))
	require.Len(t, due, 2)
	require.Same(t, early, due[0])
	require.Same(t, mid, due[1])
	require.Equal(t, 1, ts.Len())
}

func TestTimerSetRemove(t *testing.T) {
	ts := NewTimerSet()
	base := time.Unix(0, 0)

	keep := taskNamed("keep")
	cancel := taskNamed("cancel")

	ts.Add(keep, base.Add(time.Second))
	h := ts.Add(cancel, base.Add(time.Millisecond))
	ts.Remove(h)

	due := ts.PopExpired(base.Add(2 * time.Second))
	require.Len(t, due, 1)
	require.Same(t, keep, due[0])
}

func TestTimerSetBreaksTiesByInsertionOrder(t *testing.T) {
	ts := NewTimerSet()
	deadline := time.Unix(0, 0)

	first := taskNamed("first")
	second := taskNamed("second")
	ts.Add(first, deadline)
	ts.Add(second, deadline)

	due := ts.PopExpired(deadline)
	require.Len(t, due, 2)
	require.Same(t, first, due[0])
	require.Same(t, second, due[1])
}

func TestNextDeadline(t *testing.T) {
	ts := NewTimerSet()
	_, ok := ts.NextDeadline()
	require.False(t, ok)

	base := time.Unix(0, 0)
	ts.Add(taskNamed("t"), base.Add(5*time.Second))
	d, ok := ts.NextDeadline()
	require.True(t, ok)
	require.Equal(t, base.Add(5*time.Second), d)
}
