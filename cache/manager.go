package cache

import "sync"

// Manager exposes a set of named cache regions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - GetCache returns nil when the region is unknown and the manager
//   does not create regions on demand.
type Manager interface {
	// GetCache returns the region with the given name, or nil.
	GetCache(name string) Cache

	// CacheNames returns the names of the known regions.
	CacheNames() []string
}

// Registry is an in-process Manager over a fixed or on-demand set of
// regions. In dynamic mode, unknown names lazily create Memory regions.
type Registry struct {
	mu      sync.RWMutex
	regions map[string]Cache

	dynamic    bool
	memoryOpts []MemoryOption
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDynamicRegions makes the registry create a Memory region (built
// with the given options) the first time an unknown name is requested.
func WithDynamicRegions(opts ...MemoryOption) RegistryOption {
	return func(r *Registry) {
		r.dynamic = true
		r.memoryOpts = opts
	}
}

// NewRegistry creates a Manager over the given regions.
func NewRegistry(regions []Cache, opts ...RegistryOption) *Registry {
	r := &Registry{
		regions: make(map[string]Cache, len(regions)),
	}
	for _, c := range regions {
		r.regions[c.Name()] = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCache returns the named region. In dynamic mode a missing region
// is created; otherwise nil is returned.
func (r *Registry) GetCache(name string) Cache {
	r.mu.RLock()
	c, ok := r.regions[name]
	r.mu.RUnlock()
	if ok || !r.dynamic {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.regions[name]; ok {
		return c
	}
	created := NewMemory(name, r.memoryOpts...)
	r.regions[name] = created
	return created
}

// CacheNames returns the names of the currently known regions.
func (r *Registry) CacheNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.regions))
	for name := range r.regions {
		names = append(names, name)
	}
	return names
}

// Ensure Registry implements Manager
var _ Manager = (*Registry)(nil)
