package widget

import (
	"fmt"
	"sort"
	"sync"
)

// Factory returns a fresh Kind value for one component.
type Factory func() Kind

// Registry maps kind names to factories. Kinds are registered explicitly at
// startup.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("register kind %q: name and factory are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[name]; exists {
		return fmt.Errorf("%w: %s", ErrKindExists, name)
	}
	r.kinds[name] = factory
	return nil
}

func (r *Registry) New(name string) (Kind, error) {
	r.mu.RLock()
	f := r.kinds[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return f(), nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
