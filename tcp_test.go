package coreio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runTask drives task to completion against a fresh fakeDriver, the same
// synchronous-completion stand-in coroutine_test.go uses, and returns
// that driver so callers can inspect the last intent it saw.
func runTask(t *testing.T, task Task) *fakeDriver {
	t.Helper()
	fd := &fakeDriver{}
	for {
		intent, more := task.Step()
		if !more {
			return fd
		}
		_, err := fd.Submit(task, intent)
		require.NoError(t, err)
		fd.outstanding = nil
	}
}

func TestStreamWriteReportsFullConsumption(t *testing.T) {
	var residual *Buffer
	var wrote bool
	runTask(t, Go(func(y *Yielder) {
		conn, err := y.Connect("127.0.0.1:0")
		require.NoError(t, err)
		buf := NewBuffer(4)
		buf.Append([]byte("ping"))
		residual, err = conn.Write(buf)
		require.NoError(t, err)
		wrote = true
		require.NoError(t, conn.Close())
	}))
	require.True(t, wrote)
	require.Nil(t, residual, "a fully consumed write must report no residual buffer")
}

func TestListenerAcceptProducesDistinctStream(t *testing.T) {
	var listenerFd, acceptedFd int32
	runTask(t, Go(func(y *Yielder) {
		ln, err := y.NewListener("127.0.0.1:0")
		require.NoError(t, err)
		listenerFd = ln.Fd()
		conn, err := ln.Accept()
		require.NoError(t, err)
		acceptedFd = conn.Fd()
		require.NoError(t, conn.Close())
		require.NoError(t, ln.Close())
	}))
	require.NotZero(t, acceptedFd)
	require.NotEqual(t, listenerFd, acceptedFd)
}
