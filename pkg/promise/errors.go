package promise

import "errors"

var (
	// ErrAlreadySettled is returned when resolving or rejecting a settled promise.
	ErrAlreadySettled = errors.New("promise: already settled")

	// ErrNilRejection replaces a nil error passed to Reject.
	ErrNilRejection = errors.New("promise: rejected without a cause")

	// ErrPanicked wraps a panic recovered from a function started with Go.
	ErrPanicked = errors.New("promise: function panicked")
)
