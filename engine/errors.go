package engine

import "errors"

// Sentinel errors for engine operations. Aside from
// ErrResultUnavailable, all indicate fatal configuration problems.
var (
	// ErrResultUnavailable signals that an expression referenced the
	// call's result before the underlying invocation produced one.
	// Recoverable: pre-invocation it drives conservative behavior.
	ErrResultUnavailable = errors.New("engine: result not yet available")

	// ErrNilKey is returned when key generation produces nil, which
	// would make the cache mapping ambiguous.
	ErrNilKey = errors.New("engine: nil key returned for cache operation")

	// ErrNoCaches is returned when resolution yields no region for an
	// operation. At least one cache must be provided per operation.
	ErrNoCaches = errors.New("engine: no cache could be resolved for operation")

	// ErrNoResolver is returned when an operation names neither a
	// manager nor a resolver and no default resolver is configured.
	ErrNoResolver = errors.New("engine: no cache resolver configured")

	// ErrUnknownKeyGenerator is returned when an operation references
	// an unregistered key generator name.
	ErrUnknownKeyGenerator = errors.New("engine: no key generator registered under name")

	// ErrUnknownResolver is returned when an operation references an
	// unregistered resolver name.
	ErrUnknownResolver = errors.New("engine: no cache resolver registered under name")

	// ErrUnknownManager is returned when an operation references an
	// unregistered manager name.
	ErrUnknownManager = errors.New("engine: no cache manager registered under name")

	// ErrUnknownCache is returned when a resolver cannot find a region
	// by name.
	ErrUnknownCache = errors.New("engine: no cache registered under name")

	// ErrUnknownExpression is returned by FuncEvaluator for an
	// expression string with no registered function.
	ErrUnknownExpression = errors.New("engine: no function registered for expression")
)
