package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/conduit/internal/node"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Kind holds the compiled Go parts of a work kind.
type Kind struct {
	Work node.WorkFunc
	// NewParams returns a pointer to the struct the kind decodes its params
	// into. Nil means the kind accepts any params.
	NewParams func() any
}

// Registry holds every registered kind for a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		kinds: make(map[string]*Kind),
	}
}

// RegisterKind registers the Go implementation of a work kind. Registering
// the same name twice is a programming error and panics.
func (r *Registry) RegisterKind(name string, kind *Kind) {
	if kind == nil || kind.Work == nil {
		panic(fmt.Sprintf("kind '%s' has no work function", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[name]; exists {
		panic(fmt.Sprintf("kind with name '%s' already registered", name))
	}
	slog.Debug("Registering kind.", "name", name)
	r.kinds[name] = kind
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the registered kind names in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterModules registers every module in order.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}
