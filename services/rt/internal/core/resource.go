// Package core defines the capability contract every hardware resource
// implements, together with the task/waker types it is polled through.
package core

import (
	"devicert-go/errcode"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/types"
)

// WaitList records (event → waker) interest. When the event is next drained
// every registered waker is invoked once and the registrations are cleared.
type WaitList interface {
	RegisterWaker(ev types.Event, w Waker)
}

// Config is passed to every capability operation: the active scheme and mode
// and the suspension handle of the polling task.
type Config struct {
	Scheme types.Scheme
	Mode   types.Mode
	cx     *Context
}

// NewConfig builds the per-call configuration for id under cx.
func NewConfig(id types.ResourceID, cx *Context) Config {
	return Config{Scheme: id.Scheme, Mode: id.Mode, cx: cx}
}

func (c Config) Context() *Context { return c.cx }

// WaitFor registers the polling task's waker against ev and returns
// ErrPending, so resources can write `return 0, cfg.WaitFor(ev)`.
// Without a context (a direct call outside the executor) nothing is
// registered and the caller is expected to retry on its own.
func (c Config) WaitFor(ev types.Event) error {
	if w, wl := c.cx.Waker(), c.cx.WaitList(); w != nil && wl != nil {
		wl.RegisterWaker(ev, w)
	}
	return ErrPending
}

// Resource is the capability contract. All operations are non-blocking:
// they either complete (nil or a typed error) or return ErrPending after
// registering interest through cfg.WaitFor.
type Resource interface {
	PollRead(cfg Config, buf []byte) (int, error)
	PollWrite(cfg Config, buf []byte) (int, error)
	PollFlush(cfg Config) error
	PollClose(cfg Config) error
	PollSeek(cfg Config, offset int64, whence int) (int64, error)

	// Path is the self-reported identity searched by the resolver.
	Path() locator.RawPath

	// HandleEvent is invoked by the registry, on the executor, when an
	// interrupt associated with this resource is drained.
	HandleEvent(ev types.Event)
}

// Base supplies the defaults shared by the canonical resources: seeking is
// unsupported, flush and close complete immediately, events are ignored.
// Embedders implement PollRead, PollWrite and Path.
type Base struct{}

func (Base) PollFlush(Config) error { return nil }
func (Base) PollClose(Config) error { return nil }
func (Base) PollSeek(Config, int64, int) (int64, error) {
	return 0, errcode.Unsupported
}
func (Base) HandleEvent(types.Event) {}

// Unsupported builds the error for an operation a resource does not offer
// under the requested scheme.
func Unsupported(op string, s types.Scheme) error {
	return errcode.New(errcode.Unsupported, op, "scheme "+s.String())
}
