package streamworker

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps worker names to factories. It is an explicit value handed to
// whatever serves sessions; the package keeps no global registry.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name.
// It overwrites any previously registered factory with the same name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Get returns the factory registered under name, or an error wrapping
// ErrWorkerNotFound.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("worker %q: %w", name, ErrWorkerNotFound)
	}
	return f, nil
}

// List returns a sorted slice of all registered worker names.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := slices.Collect(maps.Keys(r.factories))
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Open creates a session for the named worker. The caller still calls Start.
func (r *Registry) Open(name string, opts Options) (*Session, error) {
	f, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return New(f, opts)
}
