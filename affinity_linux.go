//go:build linux

package coreio

import "golang.org/x/sys/unix"

// setAffinity pins the calling thread to core using sched_setaffinity,
// the same mechanism the teacher's ublk queue workers use to keep a
// queue's polling thread off the scheduler's migration path.
func setAffinity(core int) {
	if core < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	_ = unix.SchedSetaffinity(0, &set)
}
