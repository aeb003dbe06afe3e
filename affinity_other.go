//go:build !linux

package coreio

// setAffinity is a no-op on platforms without sched_setaffinity; the
// engine still runs correctly, just without core pinning.
func setAffinity(core int) {}
