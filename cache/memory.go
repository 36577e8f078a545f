package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memory is an in-process cache region backed by a map.
//
// An optional TTL applies to every entry; expired entries are cleaned
// up lazily on read. GetOrLoad collapses concurrent loads for the same
// key into a single loader invocation.
type Memory struct {
	name string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[any]memoryEntry

	sfGroup singleflight.Group // prevents thundering herd on load
}

type memoryEntry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryOption configures a Memory region.
type MemoryOption func(*Memory)

// WithTTL sets a time-to-live applied to every entry in the region.
// Zero (the default) disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// NewMemory creates a new in-memory region with the given name.
func NewMemory(name string, opts ...MemoryOption) *Memory {
	m := &Memory{
		name:    name,
		entries: make(map[any]memoryEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the region name.
func (m *Memory) Name() string {
	return m.name
}

// Get retrieves a value. Returns (zero, false) on miss or expiry.
func (m *Memory) Get(_ context.Context, key any) (ValueWrapper, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return ValueWrapper{}, false
	}

	if entry.expired(time.Now()) {
		// Expired - clean up lazily
		m.evictExpired(key)
		return ValueWrapper{}, false
	}

	return WrapValue(entry.value), true
}

// evictExpired removes key only if the current entry is still expired.
// A Put may have refreshed the mapping between the read-locked lookup
// and this write-locked cleanup; a fresh entry must survive.
func (m *Memory) evictExpired(key any) {
	m.mu.Lock()
	if entry, ok := m.entries[key]; ok && entry.expired(time.Now()) {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

// GetOrLoad returns the mapped value, running loader on a miss. The
// single-flight group guarantees at most one loader execution per key
// across concurrent callers of this region instance.
func (m *Memory) GetOrLoad(ctx context.Context, key any, loader Loader) (any, error) {
	if w, ok := m.Get(ctx, key); ok {
		return w.Get(), nil
	}

	v, err, _ := m.sfGroup.Do(stringKey(key), func() (any, error) {
		// Re-check under the flight: a racing caller may have stored
		// the value between the miss and this execution.
		if w, ok := m.Get(ctx, key); ok {
			return w.Get(), nil
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		m.Put(ctx, key, value)
		return value, nil
	})
	if err != nil {
		return nil, NewValueRetrievalError(key, err)
	}
	return v, nil
}

// Put stores a value, replacing any existing mapping.
func (m *Memory) Put(_ context.Context, key any, value any) {
	m.mu.Lock()
	m.entries[key] = m.newEntry(value)
	m.mu.Unlock()
}

// PutIfAbsent stores a value only if no live mapping exists.
func (m *Memory) PutIfAbsent(_ context.Context, key any, value any) (ValueWrapper, bool) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok && !entry.expired(now) {
		return WrapValue(entry.value), true
	}
	m.entries[key] = m.newEntry(value)
	return ValueWrapper{}, false
}

// Evict removes a mapping. Idempotent - no effect on miss.
func (m *Memory) Evict(_ context.Context, key any) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear removes every mapping in the region.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[any]memoryEntry)
	m.mu.Unlock()
}

func (m *Memory) newEntry(value any) memoryEntry {
	entry := memoryEntry{value: value}
	if m.ttl > 0 {
		entry.expiresAt = time.Now().Add(m.ttl)
	}
	return entry
}

// Ensure Memory implements Cache
var _ Cache = (*Memory)(nil)
