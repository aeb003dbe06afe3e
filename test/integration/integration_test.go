// +build integration

// Package integration exercises coreio against real sockets and the
// real kernel, the scenarios spec.md §8 seeds the suite with. It is
// gated behind the integration build tag exactly like the teacher's
// test/integration package, since these tests need a real loopback
// network stack and take real wall-clock time for the sleep-ladder
// case.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/coreio"
)

// TestEchoScenario is scenario 1 from spec.md §8: a client sends
// "ping", the server echoes it back, and once the client closes, the
// server's next Read observes the orderly shutdown and closes too.
func TestEchoScenario(t *testing.T) {
	const addr = "127.0.0.1:19797"

	engine, err := coreio.NewEngine(coreio.Config{})
	require.NoError(t, err)
	defer engine.Close()

	var gotEcho string
	var serverSawEOF bool

	// The listener task's NewListener resolves synchronously inside its
	// own scheduler tick, so by the time the client task below ever
	// gets a chance to run, the socket is already bound and listening.
	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		ln, err := y.NewListener(addr)
		require.NoError(t, err)
		conn, err := ln.Accept()
		require.NoError(t, err)

		buf := engine.GetBuffer()
		defer engine.PutBuffer(buf)
		for {
			buf.Reset()
			_, err := conn.Read(buf)
			require.NoError(t, err)
			if buf.Written() == 0 {
				serverSawEOF = true
				break
			}
			require.NoError(t, conn.WriteAll(buf))
		}
		require.NoError(t, conn.Close())
		require.NoError(t, ln.Close())
	}))

	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		conn, err := y.Connect(addr)
		require.NoError(t, err)

		out := coreio.NewBuffer(4)
		out.Append([]byte("ping"))
		require.NoError(t, conn.WriteAll(out))

		in := coreio.NewBuffer(4)
		_, err = conn.Read(in)
		require.NoError(t, err)
		gotEcho = string(in.Bytes())

		require.NoError(t, conn.Close())
	}))

	require.NoError(t, engine.Run(nil))
	require.Equal(t, "ping", gotEcho)
	require.True(t, serverSawEOF)
}

// TestSleepLadderOrdering is scenario 3 from spec.md §8, scaled to
// sub-second durations: each wake must occur no earlier than requested
// and the relative ordering between differently-sized sleeps must hold.
func TestSleepLadderOrdering(t *testing.T) {
	engine, err := coreio.NewEngine(coreio.Config{})
	require.NoError(t, err)
	defer engine.Close()

	var order []string
	start := time.Now()
	var elapsedShort, elapsedLong time.Duration

	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		y.Sleep(5 * time.Millisecond)
		elapsedShort = time.Since(start)
		order = append(order, "short")
	}))
	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		y.Sleep(40 * time.Millisecond)
		elapsedLong = time.Since(start)
		order = append(order, "long")
	}))

	require.NoError(t, engine.Run(nil))
	require.Equal(t, []string{"short", "long"}, order)
	require.GreaterOrEqual(t, elapsedShort, 5*time.Millisecond)
	require.GreaterOrEqual(t, elapsedLong, 40*time.Millisecond)
}

// TestAcceptCloseRace is scenario 4 from spec.md §8: a client connects
// and immediately closes without writing anything. The server's Accept
// must still succeed, its next Read must observe the orderly shutdown,
// and Close must release the descriptor cleanly.
func TestAcceptCloseRace(t *testing.T) {
	const addr = "127.0.0.1:19798"

	engine, err := coreio.NewEngine(coreio.Config{})
	require.NoError(t, err)
	defer engine.Close()

	var accepted, sawEOF, closed bool

	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		ln, err := y.NewListener(addr)
		require.NoError(t, err)
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted = true

		buf := engine.GetBuffer()
		defer engine.PutBuffer(buf)
		_, err = conn.Read(buf)
		require.NoError(t, err)
		sawEOF = buf.Written() == 0

		require.NoError(t, conn.Close())
		closed = true
		require.NoError(t, ln.Close())
	}))

	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		conn, err := y.Connect(addr)
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}))

	require.NoError(t, engine.Run(nil))
	require.True(t, accepted)
	require.True(t, sawEOF)
	require.True(t, closed)
}
