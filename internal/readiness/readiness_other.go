//go:build !linux

package readiness

import (
	"time"

	"github.com/behrlich/coreio/internal/driver"
	"github.com/behrlich/coreio/internal/errs"
	"github.com/behrlich/coreio/internal/obslog"
	"github.com/behrlich/coreio/internal/proto"
)

// Driver is the non-Linux stand-in: epoll is Linux-only, matching
// spec.md §1's scope ("a modern Linux kernel with both a readiness
// poller and a completion-based submission interface").
type Driver struct{}

// New always fails on non-Linux platforms.
func New(log obslog.Logger) (*Driver, error) {
	return nil, errs.NewError("epoll_create1", -1, errs.ErrOther, "the readiness driver is only available on linux")
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) Submit(task proto.Task, intent proto.Intent) (bool, error) { return false, nil }
func (d *Driver) Poll(timeout time.Duration) ([]driver.Completion, error)   { return nil, nil }
func (d *Driver) Pending() int                                             { return 0 }
func (d *Driver) Close() error                                             { return nil }
