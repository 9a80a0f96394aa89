package module

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/evmcrispr/evml/core/errors"
)

// Factory creates a fresh module instance.
type Factory func() *Module

// Descriptor is a registered module.
type Descriptor struct {
	Name    string
	Version string // semver, e.g. v1.0.0
	Summary string
	New     Factory
}

// Registry maps module names to factories. Modules register themselves from
// init functions, the way database/sql drivers do.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

var global = NewRegistry()

// Global returns the process-wide registry.
func Global() *Registry { return global }

// Register adds a module to the global registry. It panics on invalid or
// duplicate registrations, which are programming errors.
//
// Example:
//
//	func init() {
//	    module.Register(module.Descriptor{Name: "erc20", Version: "v1.0.0", New: New})
//	}
func Register(d Descriptor) {
	if err := global.Register(d); err != nil {
		panic(err)
	}
}

// Register adds a module descriptor.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("module name is required")
	}
	if d.New == nil {
		return fmt.Errorf("module %q has no factory", d.Name)
	}
	if !semver.IsValid(d.Version) {
		return fmt.Errorf("module %q has invalid version %q", d.Name, d.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.Name]; exists {
		return fmt.Errorf("module %q already registered", d.Name)
	}
	r.entries[d.Name] = d
	return nil
}

// Lookup retrieves a descriptor by name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// New instantiates a registered module.
func (r *Registry) New(name string) (*Module, error) {
	d, ok := r.Lookup(name)
	if !ok {
		if s := Suggest(name, r.Names()); s != "" {
			return nil, fmt.Errorf("%w: %s (did you mean %s?)", errors.ErrModuleNotFound, name, s)
		}
		return nil, fmt.Errorf("%w: %s", errors.ErrModuleNotFound, name)
	}
	m := d.New()
	m.Name = d.Name
	m.registry = r
	m.Version = d.Version
	if m.Summary == "" {
		m.Summary = d.Summary
	}
	return m, nil
}

// Names returns registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export returns all descriptors sorted by name (for tooling and docs).
func (r *Registry) Export() []Descriptor {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(names))
	for i, name := range names {
		out[i] = r.entries[name]
	}
	return out
}
