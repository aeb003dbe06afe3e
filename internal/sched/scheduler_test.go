package sched

import (
	"testing"
	"time"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/proto"
	"github.com/stretchr/testify/require"
)

// fakeDriver is a deterministic, in-memory stand-in for a real readiness
// or completion driver, used so scheduler tests never touch a kernel.
type fakeDriver struct {
	outstanding []driver.Completion
}

func (f *fakeDriver) Submit(t proto.Task, intent proto.Intent) (bool, error) {
	// Every submitted op "completes" on the very next Poll call.
	if intent.Out != nil {
		intent.Out.N = 1
	}
	f.outstanding = append(f.outstanding, driver.Completion{Task: t})
	return false, nil
}

func (f *fakeDriver) Poll(timeout time.Duration) ([]driver.Completion, error) {
	out := f.outstanding
	f.outstanding = nil
	return out, nil
}

func (f *fakeDriver) Pending() int   { return len(f.outstanding) }
func (f *fakeDriver) Close() error   { return nil }

func TestSchedulerRunsYieldToCompletion(t *testing.T) {
	s := New(&fakeDriver{})
	ticks := 0
	s.Spawn(proto.TaskFunc(func() (proto.Intent, bool) {
		ticks++
		if ticks < 3 {
			return proto.Intent{Tag: proto.TagYield}, true
		}
		return proto.Intent{}, false
	}))

	require.NoError(t, s.Run(nil))
	require.Equal(t, 3, ticks)
}

func TestSchedulerDispatchesToDriver(t *testing.T) {
	fd := &fakeDriver{}
	s := New(fd)

	out := &proto.Result{}
	step := 0
	s.Spawn(proto.TaskFunc(func() (proto.Intent, bool) {
		step++
		if step == 1 {
			return proto.Intent{Tag: proto.TagRead, Out: out}, true
		}
		return proto.Intent{}, false
	}))

	require.NoError(t, s.Run(nil))
	require.Equal(t, 1, out.N, "the fake driver's completion must reach the out-slot before resume")
}

func TestSchedulerSleepOrdering(t *testing.T) {
	fd := &fakeDriver{}
	clock := time.Unix(0, 0)
	s := New(fd, WithClock(func() time.Time { return clock }))

	var order []string
	spawnSleeper := func(name string, d time.Duration) {
		slept := false
		s.Spawn(proto.TaskFunc(func() (proto.Intent, bool) {
			if !slept {
				slept = true
				return proto.Intent{Tag: proto.TagSleep, Duration: d}, true
			}
			order = append(order, name)
			return proto.Intent{}, false
		}))
	}
	spawnSleeper("long", 300*time.Millisecond)
	spawnSleeper("short", 100*time.Millisecond)

	// Once both tasks are parked in the timer set, jump the fake clock
	// past both deadlines instead of sleeping for real.
	advanced := false
	err := s.Run(func() bool {
		if !advanced && s.timers.Len() == 2 {
			clock = clock.Add(400 * time.Millisecond)
			advanced = true
		}
		return false
	})

	require.NoError(t, err)
	require.Equal(t, []string{"short", "long"}, order)
}
