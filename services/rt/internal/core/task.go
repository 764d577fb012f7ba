package core

import "errors"

// ErrPending is returned by a capability operation that cannot make progress
// yet. A resource must register the caller's waker (Config.WaitFor) before
// returning it.
var ErrPending = errors.New("pending")

// IsPending reports whether err means "not yet ready".
func IsPending(err error) bool { return errors.Is(err, ErrPending) }

// Poll is the outcome of polling a task once.
type Poll uint8

const (
	Pending Poll = iota
	Ready
)

func (p Poll) String() string {
	if p == Ready {
		return "ready"
	}
	return "pending"
}

// Future is one suspended computation. Poll resumes it until its next
// suspension point. It must not block.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a function to Future.
type FutureFunc func(cx *Context) Poll

func (f FutureFunc) Poll(cx *Context) Poll { return f(cx) }

// Waker asks the executor to poll a task again. Wake may be called from any
// context, any number of times, including after the task has completed.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Context is handed to Future.Poll and exposes the waker of the task being polled.
type Context struct {
	waker Waker
	waits WaitList
	owner uint64
}

// NewContext binds w to an optional wait-list. With a nil wait-list,
// resources cannot park the task on an event.
func NewContext(w Waker, waits WaitList) *Context {
	return &Context{waker: w, waits: waits}
}

// NewTaskContext is NewContext for a scheduled task. owner is non-zero and
// unique per task for the life of the process; resources that keep
// per-caller state key it by Owner.
func NewTaskContext(owner uint64, w Waker, waits WaitList) *Context {
	return &Context{waker: w, waits: waits, owner: owner}
}

// Owner identifies the polling task, 0 outside the executor.
func (cx *Context) Owner() uint64 {
	if cx == nil {
		return 0
	}
	return cx.owner
}

func (cx *Context) Waker() Waker {
	if cx == nil {
		return nil
	}
	return cx.waker
}

// WaitList returns the event wait-list the context registers against.
func (cx *Context) WaitList() WaitList {
	if cx == nil {
		return nil
	}
	return cx.waits
}
