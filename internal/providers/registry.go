package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prizm-dev/prizm/internal/errs"
)

// Registry holds the set of configured LLM providers, keyed by Name(), and
// resolves the provider/model pair an agent asks for. Grounded on the
// teacher's cmd/gateway_providers.go wiring (registry.Register per configured
// provider, gated on an API key being present).
type Registry struct {
	mu       sync.RWMutex
	provs    map[string]Provider
	fallback string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{provs: make(map[string]Provider)}
}

// Register adds p, keyed by p.Name(). The first provider registered becomes
// the fallback used when a caller asks for a provider by empty name.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provs[p.Name()] = p
	if r.fallback == "" {
		r.fallback = p.Name()
	}
}

// Get returns the provider registered under name, or the fallback provider
// when name is empty. Returns a NotFound *errs.Error when nothing matches.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := name
	if key == "" {
		key = r.fallback
	}
	p, ok := r.provs[key]
	if !ok {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("provider %q not configured", name))
	}
	return p, nil
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.provs[name]
	return ok
}

// Names returns the registered provider names, sorted for deterministic
// output (doctor/status commands, logs).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.provs))
	for name := range r.provs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.provs)
}
