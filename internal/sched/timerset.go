package sched

import (
	"container/heap"
	"time"

	"github.com/behrlich/coreio/internal/proto"
)

// timerEntry is one parked Sleep. idx mirrors the stored index gaio's
// timedHeap keeps on each entry so heap.Remove can cancel an arbitrary
// entry in O(log n) instead of requiring a linear scan.
type timerEntry struct {
	deadline time.Time
	seq      uint64 // insertion order, breaks deadline ties FIFO
	task     proto.Task
	idx      int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.idx = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.idx = -1
	*h = old[:n-1]
	return e
}

// TimerSet is the scheduler's single wake-time-ordered collection of
// sleeping tasks (spec.md component C). There is exactly one per
// scheduler core, shared by every task that sleeps — not one per
// operation — matching the original engine's single per-core
// `timeouts` field.
type TimerSet struct {
	h   timerHeap
	seq uint64
}

// NewTimerSet builds an empty timer set.
func NewTimerSet() *TimerSet {
	return &TimerSet{}
}

// Add parks task until deadline, returning a handle that Remove accepts
// to cancel it early.
func (t *TimerSet) Add(task proto.Task, deadline time.Time) *timerEntry {
	t.seq++
	e := &timerEntry{deadline: deadline, seq: t.seq, task: task}
	heap.Push(&t.h, e)
	return e
}

// Remove cancels a still-pending timer entry. It is a no-op if the
// entry already fired and was popped.
func (t *TimerSet) Remove(e *timerEntry) {
	if e.idx < 0 || e.idx >= len(t.h) || t.h[e.idx] != e {
		return
	}
	heap.Remove(&t.h, e.idx)
}

// Len reports how many timers are pending.
func (t *TimerSet) Len() int { return len(t.h) }

// NextDeadline reports the earliest pending deadline. ok is false if no
// timers are pending.
func (t *TimerSet) NextDeadline() (deadline time.Time, ok bool) {
	if len(t.h) == 0 {
		return time.Time{}, false
	}
	return t.h[0].deadline, true
}

// PopExpired removes and returns every task whose deadline is at or
// before now, in deadline order.
func (t *TimerSet) PopExpired(now time.Time) []proto.Task {
	var due []proto.Task
	for len(t.h) > 0 && !t.h[0].deadline.After(now) {
		e := heap.Pop(&t.h).(*timerEntry)
		due = append(due, e.task)
	}
	return due
}
