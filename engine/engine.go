package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/cacheops/cache"
	"github.com/jonwraymond/cacheops/operation"
)

// Invoker represents the underlying computation being cached. The
// engine runs it at most once per Execute call and never inspects it.
type Invoker func(ctx context.Context) (any, error)

// Engine decides, per invocation, whether to serve a cached value,
// which regions to consult and update, and in what order reads, writes,
// and invalidations happen around the underlying call.
//
// The engine is synchronous and re-entrant; the memoization maps are
// its only process-wide mutable state and tolerate duplicate concurrent
// computation (idempotent, last writer wins).
type Engine struct {
	source   operation.Source
	eval     Evaluator
	keyGen   KeyGenerator
	resolver Resolver

	keyGens   map[string]KeyGenerator
	resolvers map[string]Resolver
	managers  map[string]cache.Manager

	logger zerolog.Logger

	siteOps  sync.Map // site ID -> []operation.Operation, validated
	metadata sync.Map // metadataKey -> *Metadata
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}

// WithEvaluator sets the expression evaluator. The default is an empty
// FuncEvaluator, which rejects every expression until registered.
func WithEvaluator(eval Evaluator) Option {
	return func(e *Engine) {
		e.eval = eval
	}
}

// WithKeyGenerator sets the default key generator used when an
// operation names none.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(e *Engine) {
		e.keyGen = g
	}
}

// WithResolver sets the default cache resolver used when an operation
// names neither a resolver nor a manager.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithManager sets the default resolver to a SimpleResolver over the
// given manager.
func WithManager(m cache.Manager) Option {
	return func(e *Engine) {
		e.resolver = NewSimpleResolver(m)
	}
}

// WithNamedKeyGenerator registers a key generator addressable from a
// declaration's KeyGenerator field.
func WithNamedKeyGenerator(name string, g KeyGenerator) Option {
	return func(e *Engine) {
		e.keyGens[name] = g
	}
}

// WithNamedResolver registers a resolver addressable from a
// declaration's CacheResolver field.
func WithNamedResolver(name string, r Resolver) Option {
	return func(e *Engine) {
		e.resolvers[name] = r
	}
}

// WithNamedManager registers a manager addressable from a declaration's
// CacheManager field.
func WithNamedManager(name string, m cache.Manager) Option {
	return func(e *Engine) {
		e.managers[name] = m
	}
}

// New creates an Engine over the given operation source.
func New(source operation.Source, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		eval:      NewFuncEvaluator(),
		keyGen:    NewDefaultKeyGenerator(),
		keyGens:   make(map[string]KeyGenerator),
		resolvers: make(map[string]Resolver),
		managers:  make(map[string]cache.Manager),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the underlying invoker with the cache behavior declared
// for the call site. Sites with no declarations pass straight through.
// Invoker errors propagate to the caller unwrapped.
func (e *Engine) Execute(ctx context.Context, site operation.Site, target any, args []any, invoker Invoker) (any, error) {
	ops, err := e.operationsFor(site)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return invoker(ctx)
	}

	octxs, err := e.buildContexts(site, target, args, ops)
	if err != nil {
		return nil, err
	}

	// Special handling of the synchronized read fast path. Validation
	// guarantees a sync read is the sole operation on the site.
	if read, ok := ops[0].(*operation.Read); ok && read.Sync {
		return e.executeSync(ctx, octxs[0], invoker)
	}

	return e.executePhased(ctx, octxs, invoker)
}

// executeSync delegates the lookup-or-compute to the single resolved
// region's GetOrLoad, whose single-flight contract guarantees at most
// one concurrent invoker run per key.
func (e *Engine) executeSync(ctx context.Context, octx *OperationContext, invoker Invoker) (any, error) {
	// Declarations constrain a sync read to one cache name, but a
	// custom resolver could still fan out at runtime.
	if len(octx.Caches()) > 1 {
		return nil, fmt.Errorf("%w (%s)", operation.ErrSyncMultipleCaches, octx.Operation())
	}

	pass, err := octx.ConditionPasses(NoResult)
	if err != nil {
		return nil, err
	}
	if !pass {
		// No caching required, only run the underlying call.
		return invoker(ctx)
	}

	key, err := octx.GenerateKey(NoResult)
	if err != nil {
		return nil, err
	}

	region := octx.Caches()[0]
	v, err := region.GetOrLoad(ctx, key, cache.Loader(invoker))
	if err != nil {
		// Surface the raw invoker error, not the loader wrapping.
		var retrieval *cache.ValueRetrievalError
		if errors.As(err, &retrieval) {
			return nil, retrieval.Unwrap()
		}
		return nil, err
	}
	return v, nil
}

// executePhased runs the general path in strict phase order: early
// invalidation, lookup, backfill preparation, invocation-necessity
// determination, invocation, writes, late invalidation.
func (e *Engine) executePhased(ctx context.Context, octxs []*OperationContext, invoker Invoker) (any, error) {
	if err := e.processInvalidations(ctx, octxs, true, NoResult); err != nil {
		return nil, err
	}

	hit, hitFound, err := e.findCachedValue(ctx, octxs)
	if err != nil {
		return nil, err
	}

	// Collect backfills for every eligible read on a miss.
	var puts []*PutRequest
	if !hitFound {
		puts, err = e.collectPutRequests(octxs, operation.KindRead, NoResult)
		if err != nil {
			return nil, err
		}
	}

	mustInvoke := !hitFound
	if !mustInvoke {
		pending, err := e.hasWritePending(octxs)
		if err != nil {
			return nil, err
		}
		mustInvoke = pending
	}

	var result any
	if mustInvoke {
		result, err = invoker(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		result = hit.Get()
	}

	// Explicit writes are collected after the result exists so their
	// key expressions may reference it; backfills drain first.
	writePuts, err := e.collectPutRequests(octxs, operation.KindWrite, WithResult(result))
	if err != nil {
		return nil, err
	}
	puts = append(puts, writePuts...)
	for _, put := range puts {
		if err := put.Apply(ctx, result); err != nil {
			return nil, err
		}
	}

	if err := e.processInvalidations(ctx, octxs, false, WithResult(result)); err != nil {
		return nil, err
	}

	return result, nil
}

// findCachedValue scans the read operations in declared order, probing
// each operation's regions in order. The first hit wins and
// short-circuits the scan.
func (e *Engine) findCachedValue(ctx context.Context, octxs []*OperationContext) (cache.ValueWrapper, bool, error) {
	for _, octx := range octxs {
		if octx.Operation().Kind() != operation.KindRead {
			continue
		}
		pass, err := octx.ConditionPasses(NoResult)
		if err != nil {
			return cache.ValueWrapper{}, false, err
		}
		if !pass {
			e.logConditionFailed(octx)
			continue
		}

		key, err := octx.GenerateKey(NoResult)
		if err != nil {
			return cache.ValueWrapper{}, false, err
		}
		for _, region := range octx.Caches() {
			if w, ok := region.Get(ctx, key); ok {
				e.logger.Trace().
					Str("key", fmt.Sprintf("%v", key)).
					Str("cache", region.Name()).
					Msg("Cache entry found.")
				return w, true, nil
			}
		}
		e.logger.Trace().
			Str("key", fmt.Sprintf("%v", key)).
			Strs("caches", octx.CacheNames()).
			Msg("No cache entry for key.")
	}
	return cache.ValueWrapper{}, false, nil
}

// collectPutRequests queues a deferred write for every operation of the
// given kind whose condition passes in the given result state.
func (e *Engine) collectPutRequests(octxs []*OperationContext, kind operation.Kind, result ResultState) ([]*PutRequest, error) {
	var puts []*PutRequest
	for _, octx := range octxs {
		if octx.Operation().Kind() != kind {
			continue
		}
		pass, err := octx.ConditionPasses(result)
		if err != nil {
			return nil, err
		}
		if !pass {
			e.logConditionFailed(octx)
			continue
		}
		key, err := octx.GenerateKey(result)
		if err != nil {
			return nil, err
		}
		puts = append(puts, &PutRequest{octx: octx, key: key})
	}
	return puts, nil
}

// hasWritePending reports whether any write operation's eligibility
// cannot be ruled out without the result. A condition that needs the
// result is conservatively treated as pending.
func (e *Engine) hasWritePending(octxs []*OperationContext) (bool, error) {
	for _, octx := range octxs {
		if octx.Operation().Kind() != operation.KindWrite {
			continue
		}
		pass, err := octx.ConditionPasses(NoResult)
		if err != nil {
			if errors.Is(err, ErrResultUnavailable) {
				// Cannot decide without the result: the write has to proceed.
				return true, nil
			}
			return false, err
		}
		if pass {
			return true, nil
		}
	}
	return false, nil
}

// processInvalidations runs the invalidate operations for one side of
// the invocation. A cache-wide invalidation never computes a key.
func (e *Engine) processInvalidations(ctx context.Context, octxs []*OperationContext, beforeInvocation bool, result ResultState) error {
	for _, octx := range octxs {
		inv, ok := octx.Operation().(*operation.Invalidate)
		if !ok || inv.BeforeInvocation != beforeInvocation {
			continue
		}
		pass, err := octx.ConditionPasses(result)
		if err != nil {
			return err
		}
		if !pass {
			e.logConditionFailed(octx)
			continue
		}

		if inv.CacheWide {
			for _, region := range octx.Caches() {
				e.logger.Trace().
					Str("cache", region.Name()).
					Str("operation", inv.String()).
					Msg("Invalidating entire cache.")
				region.Clear(ctx)
			}
			continue
		}

		key, err := octx.GenerateKey(result)
		if err != nil {
			return err
		}
		for _, region := range octx.Caches() {
			e.logger.Trace().
				Str("key", fmt.Sprintf("%v", key)).
				Str("cache", region.Name()).
				Str("operation", inv.String()).
				Msg("Invalidating cache key.")
			region.Evict(ctx, key)
		}
	}
	return nil
}

// operationsFor resolves and validates the declaration list for a call
// site, memoizing the validated result per site ID.
func (e *Engine) operationsFor(site operation.Site) ([]operation.Operation, error) {
	if cached, ok := e.siteOps.Load(site.ID); ok {
		return cached.([]operation.Operation), nil
	}

	ops := e.source.Operations(site)
	if err := operation.ValidateSet(ops); err != nil {
		return nil, err
	}
	e.siteOps.Store(site.ID, ops)
	return ops, nil
}

// buildContexts builds one per-invocation context per operation,
// resolving each operation's regions eagerly and exactly once.
func (e *Engine) buildContexts(site operation.Site, target any, args []any, ops []operation.Operation) ([]*OperationContext, error) {
	normalized := normalizeArgs(site, args)

	octxs := make([]*OperationContext, 0, len(ops))
	for _, op := range ops {
		md, err := e.metadataFor(site, op)
		if err != nil {
			return nil, err
		}

		octx := &OperationContext{
			metadata: md,
			site:     site,
			target:   target,
			args:     normalized,
			eval:     e.eval,
		}
		caches, err := md.Resolver.ResolveCaches(octx)
		if err != nil {
			return nil, err
		}
		if len(caches) == 0 {
			return nil, fmt.Errorf("%w: %s; at least one cache must be provided per operation", ErrNoCaches, op)
		}
		octx.caches = caches
		octxs = append(octxs, octx)
	}
	return octxs, nil
}

// metadataFor returns the memoized key generator and resolver bindings
// for a (operation, call site) pair, computing them on first use.
// Duplicate concurrent computation is acceptable; last writer wins.
func (e *Engine) metadataFor(site operation.Site, op operation.Operation) (*Metadata, error) {
	mk := metadataKey{siteID: site.ID, op: op}
	if cached, ok := e.metadata.Load(mk); ok {
		return cached.(*Metadata), nil
	}

	base := op.Base()

	keyGen := e.keyGen
	if name := base.KeyGenerator; name != "" {
		g, ok := e.keyGens[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownKeyGenerator, name, op)
		}
		keyGen = g
	}

	var resolver Resolver
	switch {
	case base.CacheResolver != "":
		r, ok := e.resolvers[base.CacheResolver]
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownResolver, base.CacheResolver, op)
		}
		resolver = r
	case base.CacheManager != "":
		m, ok := e.managers[base.CacheManager]
		if !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownManager, base.CacheManager, op)
		}
		resolver = NewSimpleResolver(m)
	default:
		if e.resolver == nil {
			return nil, fmt.Errorf("%w (%s)", ErrNoResolver, op)
		}
		resolver = e.resolver
	}

	md := &Metadata{Operation: op, KeyGen: keyGen, Resolver: resolver}
	e.metadata.Store(mk, md)
	return md, nil
}

func (e *Engine) logConditionFailed(octx *OperationContext) {
	e.logger.Trace().
		Str("site", octx.Site().Name).
		Str("operation", octx.Operation().String()).
		Msg("Cache condition failed.")
}
