package coreio

import (
	"runtime"

	"github.com/behrlich/coreio/internal/bufpool"
	"github.com/behrlich/coreio/internal/completion"
	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/obslog"
	"github.com/behrlich/coreio/internal/obsmetrics"
	"github.com/behrlich/coreio/internal/readiness"
	"github.com/behrlich/coreio/internal/sched"
)

// Engine is a single per-core runtime: one ready queue, one timer set,
// one I/O driver, one buffer pool, none of it shared with another
// Engine (spec.md §5's share-nothing model). Build one Engine per OS
// thread, pin that thread to a core with PinCurrentThread, and call Run
// from that same thread.
type Engine struct {
	sched   *sched.Scheduler
	bufs    *bufpool.Pool
	drv     driver.Driver
	log     obslog.Logger
	metrics *obsmetrics.Metrics
}

// EngineOption configures an Engine at construction, layered on top of
// Config for the cross-cutting seams (logging, metrics) that
// aren't part of the process-level configuration table.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger  obslog.Logger
	metrics *obsmetrics.Metrics
}

// WithEngineLogger attaches a Logger; the default discards output.
func WithEngineLogger(l obslog.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// WithEngineMetrics attaches a Metrics sink; the default keeps a
// throwaway instance so callers that don't care never nil-check it.
func WithEngineMetrics(m *obsmetrics.Metrics) EngineOption {
	return func(o *engineOptions) { o.metrics = m }
}

// NewEngine builds an Engine around cfg.Selector's driver. The buffer
// pool, state pools and I/O driver are all constructed here, once, and
// never touched by any other Engine.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	cfg = cfg.withDefaults()

	var eo engineOptions
	for _, opt := range opts {
		opt(&eo)
	}
	if eo.logger == nil {
		eo.logger = obslog.Nop()
	}
	if eo.metrics == nil {
		eo.metrics = &obsmetrics.Metrics{}
	}

	var drv driver.Driver
	var err error
	switch cfg.Selector {
	case Completion:
		drv, err = completion.New(cfg.Entries, eo.logger)
	default:
		drv, err = readiness.New(eo.logger)
	}
	if err != nil {
		return nil, err
	}

	s := sched.New(drv,
		sched.WithLogger(eo.logger),
		sched.WithMetrics(eo.metrics),
		sched.WithMaxTasksPerTick(cfg.MaxTasksPerTick),
	)

	return &Engine{
		sched:   s,
		bufs:    bufpool.NewPool(cfg.BufferLength),
		drv:     drv,
		log:     eo.logger,
		metrics: eo.metrics,
	}, nil
}

// Spawn enqueues t to run on this Engine's next Run tick. Safe to call
// only from the Engine's own thread, same as every other Engine method —
// there is no cross-thread synchronization anywhere in this type.
func (e *Engine) Spawn(t Task) { e.sched.Spawn(t) }

// Run drives the reactor loop until every spawned task has completed
// and the driver has nothing outstanding, or stop returns true between
// ticks. Call this from the thread PinCurrentThread pinned, and only
// once per Engine.
func (e *Engine) Run(stop func() bool) error { return e.sched.Run(stop) }

// GetBuffer draws a buffer from this Engine's pool, allocating a fresh
// one if the pool is empty.
func (e *Engine) GetBuffer() *Buffer { return e.bufs.Get() }

// PutBuffer returns a buffer to this Engine's pool. Buffers that grew
// past the pool's native capacity (Buffer.Append) or were built with
// NewBuffer are silently dropped instead of pooled.
func (e *Engine) PutBuffer(b *Buffer) { e.bufs.Put(b) }

// Metrics returns this Engine's counters, for external polling (e.g. by
// an admin HTTP handler running on another goroutine/thread — Metrics
// is the one thing safe to read cross-thread, since its counters are
// atomic).
func (e *Engine) Metrics() *obsmetrics.Metrics { return e.metrics }

// Close releases the driver's kernel resources (epoll fd or io_uring
// ring). Call it after Run returns.
func (e *Engine) Close() error { return e.drv.Close() }

// PinCurrentThread locks the calling goroutine to its current OS thread
// and attempts to pin that thread to the given CPU core, the
// thread-per-core model spec.md §5 assumes. Failure to set affinity is
// not fatal — the engine still runs correctly, just without the
// cache-locality guarantee — so callers get a best-effort result rather
// than an error they'd have no good recovery from.
func PinCurrentThread(core int) {
	runtime.LockOSThread()
	setAffinity(core)
}
