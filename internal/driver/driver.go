// Package driver defines the interface the scheduler uses to hand off
// every non-trivial intent (everything except Yield and Sleep, which the
// scheduler itself handles) to one of the two interchangeable I/O
// backends: the readiness driver (internal/readiness) or the completion
// driver (internal/completion).
package driver

import (
	"time"

	"github.com/behrlich/coreio/internal/proto"
)

// Completion pairs a resumable task with the fact that its outstanding
// intent has finished; the task's out-slot has already been filled in by
// the time it appears here.
type Completion struct {
	Task proto.Task
}

// Driver performs the I/O-bound intents a scheduler cannot service
// itself. Submit must not block; the operation either completes
// synchronously (rare, e.g. a registration that can't fail) or is left
// outstanding until a future Poll call reports it in its Completion
// slice.
type Driver interface {
	// Submit begins intent on behalf of task. If it completes
	// synchronously, Submit returns true and the caller should treat
	// task as immediately ready again; otherwise Submit returns false
	// and the completion will surface from a later Poll call.
	Submit(task proto.Task, intent proto.Intent) (sync bool, err error)

	// Poll blocks for up to timeout (0 means return immediately, a
	// negative duration means no caller-imposed bound) waiting for at
	// least one outstanding operation to complete, then returns every
	// completion that is ready. The readiness driver blocks indefinitely
	// on a negative timeout; the completion driver never waits longer
	// than its own short poll timeout.
	Poll(timeout time.Duration) ([]Completion, error)

	// Pending reports how many operations are currently outstanding,
	// so the scheduler can tell a driver with nothing left to wait on
	// from one that is merely between Poll calls.
	Pending() int

	// Close releases the driver's kernel resources (epoll fd, io_uring
	// ring, etc).
	Close() error
}
