package editor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs a launcher for one backend.
type Factory func(Options) Launcher

// Registry maps backend names to launcher factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry returns a registry holding the tmux and xdotool backends.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(BackendTmux, NewTmux)
	reg.MustRegister(BackendXdotool, NewXdotool)
	return reg
}

// Register installs a factory. Returns an error if the name already exists.
func (r *Registry) Register(name string, factory Factory) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("editor: backend name is required")
	}
	if factory == nil {
		return fmt.Errorf("editor: factory is required for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("editor: %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve builds the launcher for a backend.
func (r *Registry) Resolve(name string, opts Options) (Launcher, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("editor: unknown backend %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(opts), nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
