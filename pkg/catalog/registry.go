package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the quick scenarios offered by the CLI
type Registry struct {
	mu      sync.RWMutex
	presets map[string]QuickScenario
	order   []string
}

// NewRegistry creates an empty quick scenario registry
func NewRegistry() *Registry {
	return &Registry{
		presets: make(map[string]QuickScenario),
	}
}

// Register adds a quick scenario to the registry
func (r *Registry) Register(q QuickScenario) error {
	if q.Name == "" {
		return fmt.Errorf("quick scenario name is required")
	}
	if err := ValidateScenario(q.ScenarioID()); err != nil {
		return fmt.Errorf("quick scenario %s: %w", q.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.presets[q.Name]; exists {
		return fmt.Errorf("quick scenario %s already registered", q.Name)
	}

	r.presets[q.Name] = q
	r.order = append(r.order, q.Name)
	return nil
}

// Get returns the requested quick scenario
func (r *Registry) Get(name string) (QuickScenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.presets[name]
	if !exists {
		return QuickScenario{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return q, nil
}

// List returns the registered quick scenarios, built-ins first in
// registration order
func (r *Registry) List() []QuickScenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]QuickScenario, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.presets[name])
	}
	return out
}

// Names returns the registered names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry returns a registry seeded with the built-in quick scenarios
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, q := range builtin.Quick {
		// built-ins are checked by parse
		_ = r.Register(q)
	}
	return r
}

// DefaultRegistry is the global quick scenario registry
var DefaultRegistry = NewDefaultRegistry()
