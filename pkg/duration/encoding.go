package duration

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML accepts either a string ("30 seconds") or a bare integer,
// which is read as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidDuration, node.Line)
	}
	if node.ShortTag() == "!!int" {
		var secs int64
		if err := node.Decode(&secs); err != nil {
			return err
		}
		parsed, err := New(secs, time.Second)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML renders d in its textual form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
