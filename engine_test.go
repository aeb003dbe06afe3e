package coreio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 4096, cfg.BufferLength)
	require.Equal(t, uint32(512), cfg.Entries)
	require.Equal(t, Readiness, cfg.Selector)
}

func TestConfigDefaultsPreserveExplicitValues(t *testing.T) {
	cfg := Config{BufferLength: 128, Entries: 32, Selector: Completion}.withDefaults()
	require.Equal(t, 128, cfg.BufferLength)
	require.Equal(t, uint32(32), cfg.Entries)
	require.Equal(t, Completion, cfg.Selector)
}

func TestNewEngineReadinessDriver(t *testing.T) {
	engine, err := NewEngine(Config{})
	require.NoError(t, err)
	defer engine.Close()

	ran := false
	engine.Spawn(Go(func(y *Yielder) {
		y.Yield()
		ran = true
	}))
	require.NoError(t, engine.Run(nil))
	require.True(t, ran)
}

func TestEngineBufferPoolRoundTrip(t *testing.T) {
	engine, err := NewEngine(Config{BufferLength: 64})
	require.NoError(t, err)
	defer engine.Close()

	buf := engine.GetBuffer()
	require.Equal(t, 64, buf.Cap())
	engine.PutBuffer(buf)

	again := engine.GetBuffer()
	require.Equal(t, 64, again.Cap())
}
