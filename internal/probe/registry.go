package probe

import (
	"fmt"
	"sync"

	"github.com/vigilo/vigilo/internal/domain/target"
)

// Registry holds probe implementations keyed by probe name.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]Probe)}
}

// Register adds a probe under its own name. Registering the same name
// twice is a wiring bug and returns an error.
func (r *Registry) Register(p Probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.probes[name]; exists {
		return fmt.Errorf("probe %q is already registered", name)
	}
	r.probes[name] = p
	return nil
}

// MustRegister is Register for static wiring in main.
func (r *Registry) MustRegister(ps ...Probe) {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// For resolves the probe for a target by its protocol tag.
func (r *Registry) For(t target.Target) (Probe, error) {
	r.mu.RLock()
	p, exists := r.probes[t.ProbeName()]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no probe registered for %q", t.ProbeName())
	}
	return p, nil
}

// Names returns the registered probe names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	return names
}
