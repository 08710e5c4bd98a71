package heap

import (
	"fmt"
	"sync"

	"github.com/dmitrymomot/gatecache/pkg/gateway"
)

// FilterFactory builds a filter from its heap object.
type FilterFactory func(obj Object) (gateway.Filter, error)

// HandlerFactory builds a handler from its heap object.
type HandlerFactory func(obj Object) (gateway.Handler, error)

// Registry maps object types to factories.
type Registry struct {
	mu       sync.RWMutex
	filters  map[string]FilterFactory
	handlers map[string]HandlerFactory
}

// NewRegistry returns a registry with no types.
func NewRegistry() *Registry {
	return &Registry{
		filters:  make(map[string]FilterFactory),
		handlers: make(map[string]HandlerFactory),
	}
}

// RegisterFilter binds typ to f, replacing any earlier binding.
func (r *Registry) RegisterFilter(typ string, f FilterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[typ] = f
}

// RegisterHandler binds typ to f, replacing any earlier binding.
func (r *Registry) RegisterHandler(typ string, f HandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typ] = f
}

// Build instantiates every object of doc and chains the filters in front
// of the handler.
func (r *Registry) Build(doc *Document) (gateway.Handler, error) {
	if doc == nil || doc.Handler.Type == "" {
		return nil, ErrNoHandler
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hf, ok := r.handlers[doc.Handler.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, doc.Handler)
	}
	handler, err := hf(doc.Handler)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Filters))
	filters := make([]gateway.Filter, 0, len(doc.Filters))
	for _, obj := range doc.Filters {
		if obj.Name != "" {
			if _, dup := seen[obj.Name]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateObject, obj)
			}
			seen[obj.Name] = struct{}{}
		}

		ff, ok := r.filters[obj.Type]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, obj)
		}
		f, err := ff(obj)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return gateway.Chain(handler, filters...), nil
}
