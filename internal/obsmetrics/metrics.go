// Package obsmetrics tracks per-core scheduler and driver statistics.
// Counters are atomic so a metrics snapshot can be read from outside the
// engine's own thread without disturbing the single-threaded-per-core
// run loop.
package obsmetrics

import "sync/atomic"

// LatencyBuckets are histogram upper bounds in nanoseconds, covering 1us
// through 10s with log-ish spacing. Each sample is counted only in the
// first bucket whose bound it does not exceed; samples above 10s land in
// the last bucket.
var LatencyBuckets = [...]uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

// Metrics accumulates scheduler and driver counters for one engine
// instance. The zero value is ready to use.
type Metrics struct {
	TasksSpawned  atomic.Uint64
	TasksResumed  atomic.Uint64
	TasksFinished atomic.Uint64

	ReadOps  atomic.Uint64
	WriteOps atomic.Uint64
	AcceptOps atomic.Uint64
	ConnectOps atomic.Uint64

	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64

	IOErrors atomic.Uint64

	ReadyQueueDepthTotal atomic.Uint64
	ReadyQueueDepthCount atomic.Uint64
	ReadyQueueDepthMax   atomic.Uint32

	PollLatencyNs  [len(LatencyBuckets)]atomic.Uint64
	PollCount      atomic.Uint64
}

// RecordReadyDepth folds a ready-queue length sample into the running
// average and max.
func (m *Metrics) RecordReadyDepth(depth uint32) {
	m.ReadyQueueDepthTotal.Add(uint64(depth))
	m.ReadyQueueDepthCount.Add(1)
	for {
		cur := m.ReadyQueueDepthMax.Load()
		if depth <= cur {
			return
		}
		if m.ReadyQueueDepthMax.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// RecordPollLatency buckets a single driver Poll() call's latency.
func (m *Metrics) RecordPollLatency(ns uint64) {
	m.PollCount.Add(1)
	for i, b := range LatencyBuckets {
		if ns <= b {
			m.PollLatencyNs[i].Add(1)
			return
		}
	}
	m.PollLatencyNs[len(LatencyBuckets)-1].Add(1)
}
