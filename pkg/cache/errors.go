package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNilCompute is returned when a lookup is made without a compute function.
	ErrNilCompute = errors.New("cache: nil compute function")

	// ErrComputationPanic is returned to every caller of a lookup whose
	// compute function panicked.
	ErrComputationPanic = errors.New("cache: computation panicked")

	// ErrInvalidTimeout is returned when a timeout is negative or malformed.
	ErrInvalidTimeout = errors.New("cache: invalid timeout")

	// ErrNilTimeout means a timeout resolver returned a nil promise.
	ErrNilTimeout = errors.New("cache: timeout resolver returned nil")

	// ErrResolverPanic means a timeout resolver panicked.
	ErrResolverPanic = errors.New("cache: timeout resolver panicked")
)
