// Package obslog provides the leveled logging seam used throughout coreio.
// Components take a Logger at construction time; nothing here keeps a
// mutable global default, since a per-core engine should never share
// logging state with another core.
package obslog

import (
	"log/slog"
	"os"
)

// Logger is the minimal leveled logging interface coreio components
// depend on. Field pairs follow the args...any key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Nop returns a Logger that discards everything. Engines default to this
// when constructed with a nil Logger.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)  {}
func (nopLogger) Info(string, ...any)   {}
func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Error(string, ...any)  {}
func (n nopLogger) With(...any) Logger  { return n }

// slogLogger adapts the stdlib structured logger, mirroring the teacher's
// stderr-by-default Logger but replacing its hand-rolled formatter with
// log/slog's structured handler.
type slogLogger struct {
	l *slog.Logger
}

// NewSlog builds a Logger backed by log/slog, writing text-formatted
// records to w (os.Stderr if w is nil).
func NewSlog(w *os.File) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &slogLogger{l: slog.New(slog.NewTextHandler(w, nil))}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) With(args ...any) Logger       { return &slogLogger{l: s.l.With(args...)} }
