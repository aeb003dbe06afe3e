package proto

// Task is a stackless coroutine: a unit of work the scheduler resumes
// by calling Step, which runs until it wants to block on an operation
// and returns the Intent describing that operation. Step returns
// ok=false once the task has nothing left to do; the scheduler then
// drops it.
//
// A Task never receives its previous operation's Result as an argument.
// It supplies an out-slot (Intent.Out) when it yields and reads the
// slot back itself on the next call, through whatever closure state it
// captured — the same indirection spec.md's state-record design uses to
// keep the scheduler from needing to know a task's internal shape.
type Task interface {
	Step() (Intent, bool)
}

// TaskFunc adapts a plain function to the Task interface, the same way
// http.HandlerFunc adapts a function to http.Handler. Most tasks are
// written as a closure over a small state variable and a switch, in the
// style of the tagged per-operation state machines the driver layer
// itself uses.
type TaskFunc func() (Intent, bool)

// Step calls f.
func (f TaskFunc) Step() (Intent, bool) { return f() }
