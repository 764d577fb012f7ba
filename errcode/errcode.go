package errcode

import "errors"

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Locator parsing and resolution.
	URIParse         Code = "uri_parse_error"
	NotFound         Code = "not_found"
	ResourceNotFound Code = "resource_not_found"

	// Per-call I/O against a capability object.
	InvalidInput Code = "invalid_input"
	Unsupported  Code = "unsupported"
	IOError      Code = "io_error"

	// Configuration and lifecycle.
	MultipleInitializations Code = "multiple_initializations"
	Sealed                  Code = "sealed"
	QueueFull               Code = "queue_full"
	InvalidConfig           Code = "invalid_config"
	UnknownPin              Code = "unknown_pin"
	UnknownBus              Code = "unknown_bus"
	TaskLimit               Code = "task_limit"

	Error Code = "error" // generic fallback
)

// E is the wrapper used when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.NotFound) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E for op with an optional message.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Wrap builds an *E that keeps err as its cause.
func Wrap(c Code, op string, err error) *E {
	e := &E{C: c, Op: op, Err: err}
	if err != nil {
		e.Msg = err.Error()
	}
	return e
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}
