package heap

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the gateway object graph: one terminal handler and the
// filters applied in front of it, outermost first.
type Document struct {
	Handler Object   `yaml:"handler"`
	Filters []Object `yaml:"filters"`
}

// Object is a single configured heap object.
type Object struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Config yaml.Node `yaml:"config"`
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	if doc.Handler.Type == "" {
		return nil, ErrNoHandler
	}
	return &doc, nil
}

// String identifies the object in errors and logs.
func (o Object) String() string {
	if o.Name == "" {
		return o.Type
	}
	return fmt.Sprintf("%s (%s)", o.Name, o.Type)
}

// Decode decodes the object's config into v. An absent config leaves v
// untouched.
func (o Object) Decode(v any) error {
	if o.Config.Kind == 0 {
		return nil
	}
	if err := o.Config.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, o, err)
	}
	return nil
}

// Required returns ErrMissingField naming the object and field when value
// is empty.
func (o Object) Required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s: %q", ErrMissingField, o, field)
	}
	return nil
}
