package rterr

import "testing"

func TestErrorsAreStableStrings(t *testing.T) {
	cases := map[string]error{
		"uri_parse_error":          ErrURIParse,
		"not_found":                ErrNotFound,
		"invalid_input":            ErrInvalidInput,
		"unsupported":              ErrUnsupported,
		"io_error":                 ErrIO,
		"multiple_initializations": ErrMultipleInit,
		"sealed":                   ErrSealed,
		"queue_full":               ErrQueueFull,
		"resource_not_found":       ErrResourceNotFound,
	}
	for want, e := range cases {
		if e == nil || e.Error() != want {
			t.Fatalf("error %q mismatch: got %#v", want, e)
		}
	}
}
