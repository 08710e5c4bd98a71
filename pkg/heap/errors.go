package heap

import "errors"

var (
	ErrParse           = errors.New("heap: failed to parse document")
	ErrNoHandler       = errors.New("heap: document has no handler")
	ErrUnknownType     = errors.New("heap: unknown object type")
	ErrMissingField    = errors.New("heap: missing required config field")
	ErrInvalidConfig   = errors.New("heap: invalid object config")
	ErrMissingDep      = errors.New("heap: missing dependency")
	ErrDuplicateObject = errors.New("heap: duplicate object name")
)
