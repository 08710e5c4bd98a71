package health

import "errors"

var (
	// ErrCheckPanicked reports a check that panicked instead of returning.
	ErrCheckPanicked = errors.New("health: check panicked")

	// ErrCheckTimeout reports a check still running when the readiness
	// timeout elapsed.
	ErrCheckTimeout = errors.New("health: check timeout")
)
