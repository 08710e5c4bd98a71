package gateway

import "errors"

var (
	// ErrNilPromise is returned when a handler returns no promise.
	ErrNilPromise = errors.New("gateway: handler returned nil promise")

	// ErrNilResponse is returned when a handler resolves without a response.
	ErrNilResponse = errors.New("gateway: handler resolved nil response")
)
