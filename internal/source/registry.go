package source

import (
	"encoding/json"
	"fmt"
	"sort"

	"NewsCollector/internal/domain"
)

// Factory builds a source from its type-specific config payload.
type Factory func(raw json.RawMessage) (Source, error)

// Registry keeps a mapping from source type tags to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for a type tag.
func (r *Registry) Register(typeName string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[typeName] = factory
}

// Types lists the registered type tags in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Build resolves the factory for typeName and builds a source from raw.
// Both a lookup miss and a rejected payload wrap ErrConfigSourceType.
func (r *Registry) Build(typeName string, raw json.RawMessage) (Source, error) {
	factory, ok := r.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: source type %s is not registered", domain.ErrConfigSourceType, typeName)
	}

	src, err := factory(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigSourceType, typeName, err)
	}
	return src, nil
}
