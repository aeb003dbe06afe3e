package coreio

// Selector picks which I/O driver an Engine uses (spec.md §4.8). It is a
// static, startup-time choice: nothing in the core switches drivers
// mid-run.
type Selector int

const (
	// Readiness selects the epoll-backed driver (internal/readiness):
	// a descriptor is added to epoll when an Accept/Read/Connect wait
	// begins and removed once that wait completes; it does not stay
	// registered between waits.
	Readiness Selector = iota
	// Completion selects the io_uring-backed driver (internal/completion):
	// every operation resubmits; no persistent registration.
	Completion
)

// Config is the one process-level configuration table an Engine reads
// at construction (spec.md §6's "Process surface"). There is no
// package-level global and no env/flag parsing here — that belongs to
// an external collaborator such as cmd/coreio-echo.
type Config struct {
	// BufferLength is the capacity of each pool buffer. Default 4096.
	BufferLength int

	// Selector picks the I/O driver variant. Default Readiness.
	Selector Selector

	// Entries is the io_uring ring depth used when Selector is
	// Completion. Default 512, the spec.md §4.7 minimum.
	Entries uint32

	// MaxTasksPerTick bounds how many ready tasks a single Run iteration
	// resumes before checking timers and polling the driver again, so a
	// burst of Yield-looping tasks can't starve timer delivery or I/O
	// completions. 0 means unbounded (drain the whole ready queue each
	// tick, as the spec's reference loop does).
	MaxTasksPerTick int
}

// withDefaults returns a copy of c with zero fields set to their
// documented defaults.
func (c Config) withDefaults() Config {
	if c.BufferLength <= 0 {
		c.BufferLength = 4096
	}
	if c.Entries <= 0 {
		c.Entries = 512
	}
	return c
}
