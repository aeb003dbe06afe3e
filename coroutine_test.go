package coreio

import (
	"testing"
	"time"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/stretchr/testify/require"
)

// fakeDriver is a deterministic, in-memory stand-in for a kernel-backed
// driver, the same pattern internal/sched's tests use, so coroutine
// handshake tests never touch epoll or io_uring.
type fakeDriver struct {
	outstanding []driver.Completion
	fd          int32
	lastIntent  Intent
}

func (f *fakeDriver) Submit(t Task, intent Intent) (bool, error) {
	f.lastIntent = intent
	if intent.Out != nil {
		switch intent.Tag {
		case TagNewListener, TagConnect, TagAccept, TagFileOpen:
			f.fd++
			intent.Out.Fd = f.fd
		case TagRead, TagWrite, TagWriteAll,
			TagFileRead, TagFilePRead, TagFileWrite, TagFilePWrite,
			TagFileWriteAll, TagFilePWriteAll:
			if intent.Buf != nil {
				intent.Out.N = intent.Buf.Len()
				intent.Buf.Advance(intent.Buf.Len())
			}
		}
	}
	f.outstanding = append(f.outstanding, driver.Completion{Task: t})
	return false, nil
}

func (f *fakeDriver) Poll(timeout time.Duration) ([]driver.Completion, error) {
	out := f.outstanding
	f.outstanding = nil
	return out, nil
}

func (f *fakeDriver) Pending() int { return len(f.outstanding) }
func (f *fakeDriver) Close() error { return nil }

func TestYielderRoundTripsIntentBeforeResuming(t *testing.T) {
	var seenFd int32 = -1
	task := Go(func(y *Yielder) {
		ln, err := y.NewListener("127.0.0.1:0")
		require.NoError(t, err)
		seenFd = ln.Fd()
	})

	intent, more := task.Step()
	require.True(t, more)
	require.Equal(t, TagNewListener, intent.Tag)
	require.NotNil(t, intent.Out)
	// The out-slot must still be empty here: no resume has been sent yet.
	require.Equal(t, int32(0), intent.Out.Fd)

	intent.Out.Fd = 7
	_, more = task.Step()
	require.False(t, more, "task should have finished after reading the filled-in fd")
	require.Equal(t, int32(7), seenFd)
}

func TestYielderSleepAndYield(t *testing.T) {
	var order []string
	task := Go(func(y *Yielder) {
		y.Yield()
		order = append(order, "after-yield")
		y.Sleep(10 * time.Millisecond)
		order = append(order, "after-sleep")
	})

	intent, more := task.Step()
	require.True(t, more)
	require.Equal(t, TagYield, intent.Tag)

	intent, more = task.Step()
	require.True(t, more)
	require.Equal(t, TagSleep, intent.Tag)
	require.Equal(t, 10*time.Millisecond, intent.Duration)
	require.Equal(t, []string{"after-yield"}, order)

	_, more = task.Step()
	require.False(t, more)
	require.Equal(t, []string{"after-yield", "after-sleep"}, order)
}

func TestYielderAcceptAndCloseAgainstFakeDriver(t *testing.T) {
	fd := &fakeDriver{}

	var accepted bool
	task := Go(func(y *Yielder) {
		ln, err := y.NewListener("127.0.0.1:0")
		require.NoError(t, err)
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted = true
		require.NoError(t, conn.Close())
		require.NoError(t, ln.Close())
	})

	for {
		intent, more := task.Step()
		if !more {
			break
		}
		_, err := fd.Submit(task, intent)
		require.NoError(t, err)
		completions := fd.outstanding
		fd.outstanding = nil
		for range completions {
			// a real scheduler would re-push these onto the ready queue;
			// here every op completes synchronously in Submit, so the
			// next Step call already sees a filled-in result.
		}
	}
	require.True(t, accepted)
}
