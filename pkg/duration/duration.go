package duration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type kind uint8

const (
	kindFinite kind = iota
	kindUnlimited
)

// Duration is a time-to-live outcome: a finite magnitude in a unit,
// zero, or unlimited.
//
// The zero value is a zero duration.
type Duration struct {
	value int64
	unit  time.Duration
	kind  kind
}

var (
	// Zero means "do not keep".
	Zero = Duration{unit: time.Second}

	// Unlimited means "never expire automatically".
	Unlimited = Duration{kind: kindUnlimited}
)

// New returns a finite duration of value units.
// A negative value or a non-positive unit yields ErrInvalidDuration.
func New(value int64, unit time.Duration) (Duration, error) {
	if value < 0 {
		return Duration{}, fmt.Errorf("%w: negative value %d", ErrInvalidDuration, value)
	}
	if unit <= 0 {
		return Duration{}, fmt.Errorf("%w: unit must be positive", ErrInvalidDuration)
	}
	if value > 0 && value > math.MaxInt64/int64(unit) {
		return Duration{}, fmt.Errorf("%w: %d x %s overflows", ErrInvalidDuration, value, unit)
	}
	return Duration{value: value, unit: unit}, nil
}

// Must is like New but panics on error.
// Use it for constants known to be valid.
func Must(value int64, unit time.Duration) Duration {
	d, err := New(value, unit)
	if err != nil {
		panic(err)
	}
	return d
}

// FromStd converts a time.Duration, choosing the coarsest unit that
// represents it exactly. Negative input yields ErrInvalidDuration.
func FromStd(d time.Duration) (Duration, error) {
	if d < 0 {
		return Duration{}, fmt.Errorf("%w: negative duration %s", ErrInvalidDuration, d)
	}
	if d == 0 {
		return Zero, nil
	}
	for _, u := range []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second, time.Millisecond, time.Microsecond} {
		if d%u == 0 {
			return Duration{value: int64(d / u), unit: u}, nil
		}
	}
	return Duration{value: int64(d), unit: time.Nanosecond}, nil
}

// IsZero reports whether d is a zero duration.
func (d Duration) IsZero() bool {
	return d.kind == kindFinite && d.value == 0
}

// IsUnlimited reports whether d is the unlimited sentinel.
func (d Duration) IsUnlimited() bool {
	return d.kind == kindUnlimited
}

// IsValid reports whether d is zero, unlimited or a non-negative finite
// duration in a positive unit. Durations built through this package are
// always valid; the check exists for values assembled by hand.
func (d Duration) IsValid() bool {
	if d.kind == kindUnlimited {
		return true
	}
	return d.value >= 0 && (d.value == 0 || d.unit > 0)
}

// Value is the magnitude expressed in Unit. It is 0 for unlimited.
func (d Duration) Value() int64 {
	return d.value
}

// Unit is the unit Value is expressed in. It is 0 for unlimited.
func (d Duration) Unit() time.Duration {
	return d.unit
}

// Std converts d to a time.Duration.
// Unlimited maps to math.MaxInt64.
func (d Duration) Std() time.Duration {
	if d.kind == kindUnlimited {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d.value) * d.unit
}

// String renders d in the syntax accepted by Parse, e.g. "30 seconds".
func (d Duration) String() string {
	switch {
	case d.kind == kindUnlimited:
		return "unlimited"
	case d.value == 0:
		return "zero"
	}
	name := unitName(d.unit)
	if name == "" {
		return d.Std().String()
	}
	if d.value != 1 {
		name += "s"
	}
	return strconv.FormatInt(d.value, 10) + " " + name
}

// Equal reports whether d and o describe the same span of time.
func (d Duration) Equal(o Duration) bool {
	if d.kind != o.kind {
		return false
	}
	return d.kind == kindUnlimited || d.Std() == o.Std()
}

// Parse reads a duration such as "30 seconds", "10 min", "1m30s",
// "zero" or "unlimited".
func Parse(s string) (Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	switch in {
	case "":
		return Duration{}, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	case "unlimited", "indefinite", "infinity", "undefined":
		return Unlimited, nil
	case "zero", "0", "none":
		return Zero, nil
	}

	if fields := strings.Fields(in); len(fields) == 2 {
		value, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return Duration{}, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
		}
		unit, ok := units[fields[1]]
		if !ok {
			return Duration{}, fmt.Errorf("%w: %q: unknown unit %q", ErrInvalidDuration, s, fields[1])
		}
		return New(value, unit)
	}

	std, err := time.ParseDuration(in)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return FromStd(std)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

var units = map[string]time.Duration{
	"ns": time.Nanosecond, "nanosecond": time.Nanosecond, "nanoseconds": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond, "microsecond": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
}

func unitName(u time.Duration) string {
	switch u {
	case time.Nanosecond:
		return "nanosecond"
	case time.Microsecond:
		return "microsecond"
	case time.Millisecond:
		return "millisecond"
	case time.Second:
		return "second"
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	case 24 * time.Hour:
		return "day"
	}
	return ""
}
