// Package rterr holds the runtime's sentinel errors. The strings are stable
// and double as errcode values, so errcode.Of recovers them.
package rterr

import "devicert-go/errcode"

var (
	// Locator
	ErrURIParse = errcode.URIParse
	ErrNotFound = errcode.NotFound

	// Per-call I/O
	ErrInvalidInput = errcode.InvalidInput
	ErrUnsupported  = errcode.Unsupported
	ErrIO           = errcode.IOError

	// Lifecycle / configuration
	ErrMultipleInit     = errcode.MultipleInitializations
	ErrSealed           = errcode.Sealed
	ErrQueueFull        = errcode.QueueFull
	ErrResourceNotFound = errcode.ResourceNotFound
)
