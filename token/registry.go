package token

import (
	"strings"
	"sync"

	"github.com/adamwoolhether/reqflow/errs"
)

// Factory resolves providers by logical name.
type Factory interface {
	Provider(name string) (Provider, error)
}

// Registry is a concurrency-safe Factory backed by a map.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces the provider stored under name.
func (r *Registry) Register(name string, p Provider) error {
	if strings.TrimSpace(name) == "" {
		return errs.InvalidArgument("name", "must not be empty or whitespace")
	}
	if p == nil {
		return errs.InvalidArgument("provider", "must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p

	return nil
}

// Provider returns the provider registered under name, or a
// configuration error when there is none.
func (r *Registry) Provider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, errs.Configuration("no token provider registered with the name %q", name)
	}

	return p, nil
}
