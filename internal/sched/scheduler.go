// Package sched implements the per-core reactor loop: a ready queue, a
// timer set, and the core loop that ties them to an I/O driver. See
// spec.md §4.2, §4.3 and §4.5.
package sched

import (
	"time"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/obslog"
	"github.com/behrlich/coreio/internal/obsmetrics"
	"github.com/behrlich/coreio/internal/proto"
)

// Clock abstracts time.Now so tests can drive the scheduler with a fake
// clock instead of real sleeps.
type Clock func() time.Time

// Scheduler is a single-threaded, per-core task runner. It owns one
// ready queue, one timer set, and one I/O driver, and never shares any
// of them with another Scheduler — the share-nothing model spec.md §5
// requires for safe lock-free pools.
type Scheduler struct {
	ready   *ReadyQueue
	timers  *TimerSet
	drv     driver.Driver
	log     obslog.Logger
	metrics *obsmetrics.Metrics
	now     Clock

	maxPerTick int // 0 means unbounded; see WithMaxTasksPerTick

	pendingTasks int // tasks spawned or outstanding, for Run's exit check
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger; the default discards output.
func WithLogger(l obslog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMetrics attaches a metrics sink; the default keeps counting into a
// throwaway instance so callers that don't care never nil-check it.
func WithMetrics(m *obsmetrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.now = c }
}

// WithMaxTasksPerTick bounds how many ready tasks one Run iteration
// resumes before re-checking due timers and polling the driver, so a
// burst of tasks that keep re-queueing themselves (Yield loops) cannot
// starve timer delivery or I/O completions. n<=0 means unbounded.
func WithMaxTasksPerTick(n int) Option {
	return func(s *Scheduler) { s.maxPerTick = n }
}

// New builds a Scheduler around the given driver.
func New(d driver.Driver, opts ...Option) *Scheduler {
	s := &Scheduler{
		ready:   NewReadyQueue(64),
		timers:  NewTimerSet(),
		drv:     d,
		log:     obslog.Nop(),
		metrics: &obsmetrics.Metrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn enqueues a new task to run on its first tick of Run.
func (s *Scheduler) Spawn(t proto.Task) {
	s.metrics.TasksSpawned.Add(1)
	s.pendingTasks++
	s.ready.Push(t)
}

// Run drives the reactor loop until both the ready queue and the timer
// set are empty and the driver has nothing outstanding, or stop returns
// true between ticks. stop may be nil to run until natural completion
// (spec.md's model for a process whose only job is to serve this
// engine's tasks).
func (s *Scheduler) Run(stop func() bool) error {
	for {
		if stop != nil && stop() {
			return nil
		}

		s.metrics.RecordReadyDepth(uint32(s.ready.Len()))

		if s.ready.Len() > 0 {
			limit := s.ready.Len()
			if s.maxPerTick > 0 && s.maxPerTick < limit {
				limit = s.maxPerTick
			}
			for i := 0; i < limit; i++ {
				t, ok := s.ready.Pop()
				if !ok {
					break
				}
				s.step(t)
			}
			if s.maxPerTick <= 0 || s.ready.Len() == 0 {
				continue
			}
			// Bounded tick with work still queued: deliver due timers and
			// ready completions without blocking before resuming more tasks.
			for _, t := range s.timers.PopExpired(s.now()) {
				s.ready.Push(t)
			}
			completions, err := s.drv.Poll(0)
			if err != nil {
				return err
			}
			for _, c := range completions {
				s.ready.Push(c.Task)
			}
			continue
		}

		// Ready queue drained: pull in any timers that are already due
		// before considering a blocking poll.
		due := s.timers.PopExpired(s.now())
		if len(due) > 0 {
			for _, t := range due {
				s.ready.Push(t)
			}
			continue
		}

		if s.pendingTasks == 0 && s.drv.Pending() == 0 {
			return nil
		}

		timeout := s.pollTimeout()
		pollStart := s.now()
		completions, err := s.drv.Poll(timeout)
		s.metrics.RecordPollLatency(uint64(s.now().Sub(pollStart)))
		if err != nil {
			return err
		}
		for _, c := range completions {
			s.ready.Push(c.Task)
		}
	}
}

// pollTimeout computes how long Poll should block: until the next
// timer is due, or indefinitely if there are no timers but there is
// outstanding I/O.
func (s *Scheduler) pollTimeout() time.Duration {
	deadline, ok := s.timers.NextDeadline()
	if !ok {
		return -1
	}
	d := deadline.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

// step resumes one task once and dispatches whatever Intent it yields.
func (s *Scheduler) step(t proto.Task) {
	s.metrics.TasksResumed.Add(1)
	intent, more := t.Step()
	if !more {
		s.metrics.TasksFinished.Add(1)
		s.pendingTasks--
		return
	}

	switch intent.Tag {
	case proto.TagYield:
		s.ready.Push(t)
	case proto.TagSleep:
		s.timers.Add(t, s.now().Add(intent.Duration))
	default:
		sync, err := s.drv.Submit(t, intent)
		if err != nil {
			s.log.Error("driver submit failed", "op", intent.Tag.String(), "err", err)
			if intent.Out != nil {
				intent.Out.Err = err
			}
			s.ready.Push(t)
			return
		}
		if sync {
			s.ready.Push(t)
		}
	}
}
