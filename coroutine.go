package coreio

import "time"

// Yielder is what a task-level function written with Go (this package's
// Go, not the goroutine keyword) uses to suspend on an Intent and read
// back its Result, synchronously from the function's point of view.
//
// The original engine rewrites a user function into a coroutine with a
// source macro (spec.md §1, §9); Go has no such facility. The
// language-native substitute used here is a goroutine-per-task paired
// with unbuffered handshake channels: the task's goroutine and the
// Step caller never run concurrently, so the handshake is the only
// synchronization this needs and the result is exactly the same
// single-threaded, cooperative semantics spec.md §5 requires — the
// extra goroutine only exists to give the user function a call-stack to
// block on, it never actually runs in parallel with the scheduler.
type Yielder struct {
	toStep chan Intent
	resume chan struct{}
	done   chan struct{}
}

// Go adapts fn, a function written in ordinary blocking style against a
// *Yielder, into a Task the scheduler can Step. fn receives the
// Yielder it should call Sleep/Yield/NewListener/... on; it runs in its
// own goroutine, but that goroutine is parked on a channel receive for
// the entire time the scheduler doesn't control it, so at most one of
// {fn's goroutine, the caller of Step} is ever runnable — the same
// single-threaded, cooperative semantics as a true coroutine, just
// implemented with three unbuffered channels standing in for the macro
// the original engine uses to rewrite fn's call stack.
func Go(fn func(y *Yielder)) Task {
	y := &Yielder{
		toStep: make(chan Intent),
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	started := false
	return TaskFunc(func() (Intent, bool) {
		if !started {
			started = true
			go func() {
				fn(y)
				close(y.done)
			}()
		} else {
			// Unblock the yield() call parked from the previous Step:
			// its out-slot has been filled by now, per the Task
			// protocol's contract (internal/proto.Task's doc comment).
			y.resume <- struct{}{}
		}
		select {
		case intent := <-y.toStep:
			return intent, true
		case <-y.done:
			return Intent{}, false
		}
	})
}

// yield hands intent to the scheduler and blocks until the scheduler
// resumes this task on a later Step call, by which point out has been
// filled in.
func (y *Yielder) yield(intent Intent) *Result {
	out := &Result{}
	intent.Out = out
	y.toStep <- intent
	<-y.resume
	return out
}

// Sleep suspends the task until at least now+d.
func (y *Yielder) Sleep(d time.Duration) { y.yield(Intent{Tag: TagSleep, Duration: d}) }

// Yield requeues the task at the tail of the ready queue.
func (y *Yielder) Yield() { y.yield(Intent{Tag: TagYield}) }

// NewListener creates a bound, listening TCP acceptor at addr
// ("host:port").
func (y *Yielder) NewListener(addr string) (*Listener, error) {
	r := y.yield(Intent{Tag: TagNewListener, Addr: addr})
	if r.Err != nil {
		return nil, r.Err
	}
	return &Listener{fd: r.Fd, y: y}, nil
}

// Connect opens an outbound TCP connection to addr.
func (y *Yielder) Connect(addr string) (*Stream, error) {
	r := y.yield(Intent{Tag: TagConnect, Addr: addr})
	if r.Err != nil {
		return nil, r.Err
	}
	return &Stream{fd: r.Fd, y: y}, nil
}

// Open opens the file at path per opts, mirroring spec.md §6's Open.
func (y *Yielder) Open(path string, opts OpenOptions) (*File, error) {
	r := y.yield(Intent{Tag: TagFileOpen, Path: path, Flags: opts.flags(), Perm: opts.permOr(0o644)})
	if r.Err != nil {
		return nil, r.Err
	}
	return &File{fd: r.Fd, y: y}, nil
}

// Mkdir creates the directory at path.
func (y *Yielder) Mkdir(path string, perm uint32) error {
	return y.yield(Intent{Tag: TagMkdir, Path: path, Perm: perm}).Err
}

// Rmdir removes the directory at path.
func (y *Yielder) Rmdir(path string) error {
	return y.yield(Intent{Tag: TagRmdir, Path: path}).Err
}

// Unlink removes the file at path.
func (y *Yielder) Unlink(path string) error {
	return y.yield(Intent{Tag: TagUnlink, Path: path}).Err
}

// Rename renames oldPath to newPath.
func (y *Yielder) Rename(oldPath, newPath string) error {
	return y.yield(Intent{Tag: TagRename, Path: oldPath, NewPath: newPath}).Err
}
