//go:build !linux

package ring

import "github.com/behrlich/coreio/internal/errs"

// New reports that no completion-style ring is available on this
// platform, mirroring the teacher's stub build (kernelopcode_stub.go):
// the completion driver is Linux-only, same as spec.md §1's scope.
func New(entries uint32) (Ring, error) {
	return nil, errs.NewError("io_uring_setup", -1, errs.ErrOther, "io_uring is only available on linux")
}
