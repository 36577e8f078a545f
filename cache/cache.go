package cache

import (
	"context"
	"fmt"
)

// Loader computes the value for a key that is not yet cached.
type Loader func(ctx context.Context) (any, error)

// ValueWrapper holds a cached value. The wrapper itself signals that a
// mapping exists; the wrapped value may legitimately be nil.
type ValueWrapper struct {
	value any
}

// WrapValue wraps a raw value for return from a cache lookup.
func WrapValue(v any) ValueWrapper {
	return ValueWrapper{value: v}
}

// Get returns the wrapped value, which may be nil.
func (w ValueWrapper) Get() any {
	return w.value
}

// Cache is a single named key-value region.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Keys: must be comparable values with stable equality.
// - Get returns (wrapper, true) when a mapping exists, even one holding nil.
// - GetOrLoad should run the loader at most once per key under contention.
type Cache interface {
	// Name returns the region name.
	Name() string

	// Get retrieves a cached value. The second return is false on miss.
	Get(ctx context.Context, key any) (ValueWrapper, bool)

	// GetOrLoad returns the mapped value, computing and storing it via
	// loader on a miss. Loader failures are returned wrapped in a
	// *ValueRetrievalError carrying the key.
	GetOrLoad(ctx context.Context, key any, loader Loader) (any, error)

	// Put stores a value, replacing any existing mapping.
	Put(ctx context.Context, key any, value any)

	// PutIfAbsent stores a value only if no mapping exists. It returns
	// the previous value and true when a mapping was already present.
	PutIfAbsent(ctx context.Context, key any, value any) (ValueWrapper, bool)

	// Evict removes a mapping. Idempotent.
	Evict(ctx context.Context, key any)

	// Clear removes every mapping in the region.
	Clear(ctx context.Context)
}

// ValueRetrievalError reports a loader failure during GetOrLoad. It
// carries the key being loaded and unwraps to the loader's error.
type ValueRetrievalError struct {
	Key   any
	cause error
}

// NewValueRetrievalError wraps a loader failure for the given key.
func NewValueRetrievalError(key any, cause error) *ValueRetrievalError {
	return &ValueRetrievalError{Key: key, cause: cause}
}

func (e *ValueRetrievalError) Error() string {
	return fmt.Sprintf("cache: value for key '%v' could not be loaded: %v", e.Key, e.cause)
}

func (e *ValueRetrievalError) Unwrap() error {
	return e.cause
}

// stringKey renders a key for backends and single-flight groups that
// need string keys. The rendering is type-qualified so that distinct
// keys with the same textual form, such as int(1) and "1", do not
// collapse onto one storage or flight key.
func stringKey(key any) string {
	return fmt.Sprintf("%T:%v", key, key)
}
