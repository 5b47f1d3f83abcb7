package tools

import (
	"sort"
	"sync"
	"time"

	"github.com/voocel/agentcore/schema"
)

type entry struct {
	tool    Tool
	mode    Mode
	timeout time.Duration
}

// Registry stores registered tools with their side-effect classification.
// Registration happens once at startup; lookups are concurrent.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry constructs a registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a tool under the given mode.
func (r *Registry) Register(tool Tool, mode Mode, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return schema.NewToolError(name, "register", schema.ErrInvalidInput)
	}
	if _, exists := r.entries[name]; exists {
		return schema.NewToolError(name, "register", schema.ErrToolAlreadyExists)
	}

	e := entry{tool: tool, mode: mode}
	for _, opt := range opts {
		opt(&e)
	}
	r.entries[name] = e
	return nil
}

// Get retrieves a tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	return e.tool, exists
}

// ModeOf returns the registered mode of a tool.
func (r *Registry) ModeOf(name string) (Mode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	return e.mode, exists
}

// Has reports whether a tool exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[name]
	return exists
}

// Names returns registered tool names, sorted.
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

// Count returns the number of tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Specs returns tool specs for the model, ordered by name.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		t := r.entries[name].tool
		specs = append(specs, Spec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return specs
}
