package coreio

import (
	"os"

	"github.com/behrlich/coreio/internal/obslog"
)

// Logger is the leveled logging interface Engine and its drivers accept;
// see internal/obslog for the seam this re-exports.
type Logger = obslog.Logger

// NopLogger returns a Logger that discards everything, the default an
// Engine falls back to when none is supplied.
func NopLogger() Logger { return obslog.Nop() }

// NewSlogLogger builds a Logger backed by log/slog, writing to w
// (os.Stderr if w is nil).
func NewSlogLogger(w *os.File) Logger { return obslog.NewSlog(w) }

// NewZapLogger builds a Logger backed by zap's production configuration.
func NewZapLogger() (Logger, error) { return obslog.NewZap() }
