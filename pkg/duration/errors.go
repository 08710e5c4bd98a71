package duration

import "errors"

// ErrInvalidDuration is returned when a duration cannot be parsed or is negative.
var ErrInvalidDuration = errors.New("duration: invalid duration")
