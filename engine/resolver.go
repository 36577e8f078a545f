package engine

import (
	"fmt"

	"github.com/jonwraymond/cacheops/cache"
)

// Resolver maps an operation's invocation context to the cache regions
// it targets. Resolution may depend on runtime context, so an empty
// result is a fatal error raised at first invocation rather than at
// configuration time.
type Resolver interface {
	// ResolveCaches returns the ordered regions for the operation.
	ResolveCaches(octx *OperationContext) ([]cache.Cache, error)
}

// SimpleResolver resolves an operation's declared cache names against
// a Manager, erroring on unknown names.
type SimpleResolver struct {
	manager cache.Manager
}

// NewSimpleResolver creates a Resolver over the given manager.
func NewSimpleResolver(manager cache.Manager) *SimpleResolver {
	return &SimpleResolver{manager: manager}
}

// ResolveCaches looks up each declared cache name in order.
func (r *SimpleResolver) ResolveCaches(octx *OperationContext) ([]cache.Cache, error) {
	names := octx.Operation().Base().CacheNames
	caches := make([]cache.Cache, 0, len(names))
	for _, name := range names {
		c := r.manager.GetCache(name)
		if c == nil {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownCache, name, octx.Operation())
		}
		caches = append(caches, c)
	}
	return caches, nil
}

// Ensure SimpleResolver implements Resolver
var _ Resolver = (*SimpleResolver)(nil)
