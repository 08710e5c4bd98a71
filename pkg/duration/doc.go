// Package duration models the lifetime of a cached value.
//
// A [Duration] is one of three things:
//
//   - finite: a magnitude and a unit, e.g. "30 seconds"
//   - [Zero]: the value must not be kept at all
//   - [Unlimited]: the value never expires on its own
//
// time.Duration cannot express the third state without overloading a
// magic number, so caches and configuration use this type instead.
//
// # Parsing
//
//	d, err := duration.Parse("30 seconds")
//	d, err = duration.Parse("1m30s")     // Go syntax
//	d, err = duration.Parse("unlimited") // duration.Unlimited
//	d, err = duration.Parse("zero")      // duration.Zero
//
// Durations decode from YAML and from text (flags, env) with the same syntax.
// Negative durations are rejected with [ErrInvalidDuration].
package duration
