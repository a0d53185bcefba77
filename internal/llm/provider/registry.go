package provider

import (
	"fmt"
	"sync"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
)

// Registry is a thread-safe registry of provider plugin factories.
// Registration order is preserved; alias detection walks it
// deterministically.
type Registry struct {
	mu       sync.RWMutex
	registry map[string]spi.PluginFactory
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{registry: make(map[string]spi.PluginFactory)}
}

// Register adds a provider plugin factory. Duplicate names are an error.
func (r *Registry) Register(name string, factory spi.PluginFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registry[name]; ok {
		return fmt.Errorf("provider %s is already registered", name)
	}
	r.registry[name] = factory
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a factory and panics on conflict.
func (r *Registry) MustRegister(name string, factory spi.PluginFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the factory for name.
func (r *Registry) Get(name string) (spi.PluginFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("provider %s is not registered", name)
	}
	return factory, nil
}

// List returns the registered provider names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registry)
}

// Range iterates providers in registration order until fn returns false.
func (r *Registry) Range(fn func(name string, factory spi.PluginFactory) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if !fn(name, r.registry[name]) {
			break
		}
	}
}
