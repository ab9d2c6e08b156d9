package field

import "sync"

// Registry holds the currently configured field names. The config watcher
// swaps them at runtime when the deployment changes the names; everything
// else reads the current snapshot at the start of an operation.
type Registry struct {
	mu  sync.RWMutex
	cfg Config
}

// NewRegistry creates a registry with the initial configuration.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Current returns the active field configuration.
func (r *Registry) Current() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Update replaces the active field configuration.
func (r *Registry) Update(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}
