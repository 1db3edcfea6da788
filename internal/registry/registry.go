package registry

import (
	"fmt"
	"sync"

	"parsemill/internal/port"
)

// Registry holds the registered parsing strategies in registration order.
// A strategy's identity is fixed at registration: names cannot be reused or
// replaced, so cache keys and ledger history stay unambiguous.
type Registry struct {
	mu     sync.RWMutex
	order  []port.Strategy
	byName map[string]port.Strategy
}

func New() *Registry {
	return &Registry{byName: make(map[string]port.Strategy)}
}

// Register adds a strategy. Duplicate names are rejected.
func (r *Registry) Register(s port.Strategy) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("strategy has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.byName[name] = s
	r.order = append(r.order, s)
	return nil
}

// Get looks a strategy up by name.
func (r *Registry) Get(name string) (port.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Strategies returns the registered strategies in registration order.
func (r *Registry) Strategies() []port.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]port.Strategy, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	return names
}

// Len reports how many strategies are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
