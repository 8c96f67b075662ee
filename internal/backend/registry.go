package backend

import (
	"fmt"
)

// Registry maps backend names to instances. It is populated before a run
// begins and is read-only for the run's duration, so lookups need no locking.
// Iteration order is registration order, which keeps fallback selection
// deterministic.
type Registry struct {
	order  []string
	byName map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Backend)}
}

// Register adds a backend under its own name. Registering two backends with
// the same name is a programmer error and is rejected.
func (r *Registry) Register(b Backend) error {
	name := b.Name()
	if name == "" {
		return fmt.Errorf("backend has an empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}
	r.byName[name] = b
	r.order = append(r.order, name)
	return nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	return len(r.order)
}

// All returns every registered backend in registration order.
func (r *Registry) All() []Backend {
	out := make([]Backend, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Healthy returns every backend currently reporting healthy, in
// registration order.
func (r *Registry) Healthy() []Backend {
	var out []Backend
	for _, name := range r.order {
		if b := r.byName[name]; b.Healthy() {
			out = append(out, b)
		}
	}
	return out
}
