package operation

import "errors"

// Sentinel errors for configuration validation. All are fatal: they
// indicate a malformed declaration, not a runtime condition.
var (
	// ErrKeyConflict is returned when Key and KeyGenerator are both set.
	ErrKeyConflict = errors.New("operation: key expression and key generator are mutually exclusive")

	// ErrResolverConflict is returned when CacheManager and CacheResolver are both set.
	ErrResolverConflict = errors.New("operation: cache manager and cache resolver are mutually exclusive")

	// ErrSyncNotAlone is returned when a sync read is combined with other operations.
	ErrSyncNotAlone = errors.New("operation: a sync read cannot be combined with other cache operations")

	// ErrSyncMultipleCaches is returned when a sync read targets more than one region.
	ErrSyncMultipleCaches = errors.New("operation: a sync read allows only a single cache")

	// ErrSyncWithUnless is returned when a sync read declares an unless clause.
	ErrSyncWithUnless = errors.New("operation: a sync read does not support an unless clause")
)
