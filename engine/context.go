package engine

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jonwraymond/cacheops/cache"
	"github.com/jonwraymond/cacheops/operation"
)

// ResultState carries the underlying call's result into expression
// evaluation, distinguishing "no result yet" from a result of nil.
type ResultState struct {
	Available bool
	Value     any
}

// NoResult is the pre-invocation result state.
var NoResult = ResultState{}

// WithResult wraps an available call result.
func WithResult(v any) ResultState {
	return ResultState{Available: true, Value: v}
}

// Metadata is the call-site-invariant resolution of an operation: the
// key generator and cache resolver it uses. Computed once per
// (operation, call site) pair and memoized for the process lifetime.
type Metadata struct {
	Operation operation.Operation
	KeyGen    KeyGenerator
	Resolver  Resolver
}

// metadataKey identifies a memoized Metadata entry. Operations are
// immutable singletons created at configuration time, so the interface
// value's pointer identity is a stable component of the key.
type metadataKey struct {
	siteID string
	op     operation.Operation
}

// OperationContext binds one operation to one invocation: metadata,
// the normalized argument list, the target, and the eagerly resolved
// regions. Owned by a single engine invocation, never shared.
type OperationContext struct {
	metadata *Metadata
	site     operation.Site
	target   any
	args     []any
	caches   []cache.Cache
	eval     Evaluator

	// key is computed at most once per invocation and reused across
	// phases.
	key    any
	keySet bool
}

// Operation returns the declaration this context is bound to.
func (c *OperationContext) Operation() operation.Operation {
	return c.metadata.Operation
}

// Site returns the call-site descriptor.
func (c *OperationContext) Site() operation.Site {
	return c.site
}

// Target returns the invocation target.
func (c *OperationContext) Target() any {
	return c.target
}

// Args returns the normalized argument list.
func (c *OperationContext) Args() []any {
	return c.args
}

// Caches returns the resolved regions, in order.
func (c *OperationContext) Caches() []cache.Cache {
	return c.caches
}

// CacheNames returns the names of the resolved regions.
func (c *OperationContext) CacheNames() []string {
	names := make([]string, len(c.caches))
	for i, cc := range c.caches {
		names[i] = cc.Name()
	}
	return names
}

// ConditionPasses reports whether the operation participates in this
// invocation. A missing condition always passes. An expression that
// needs the result before one exists surfaces ErrResultUnavailable.
func (c *OperationContext) ConditionPasses(result ResultState) (bool, error) {
	cond := c.Operation().Base().Condition
	if cond == "" {
		return true, nil
	}
	return c.eval.Condition(cond, c.evalContext(result))
}

// GenerateKey computes the operation's lookup key, evaluating the
// declared key expression if present and delegating to the bound key
// generator otherwise. A nil key is a fatal configuration error. The
// key is memoized for the invocation.
func (c *OperationContext) GenerateKey(result ResultState) (any, error) {
	if c.keySet {
		return c.key, nil
	}

	var key any
	var err error
	if expr := c.Operation().Base().Key; expr != "" {
		key, err = c.eval.Key(expr, c.evalContext(result))
	} else {
		key, err = c.metadata.KeyGen.Generate(c.target, c.site, c.args)
	}
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w (%s)", ErrNilKey, c.Operation())
	}

	c.key = key
	c.keySet = true
	return key, nil
}

// CanWrite reports whether the result may be stored. An unless clause
// that passes vetoes the write; no clause means always writable.
func (c *OperationContext) CanWrite(value any) (bool, error) {
	var unless string
	switch op := c.Operation().(type) {
	case *operation.Read:
		unless = op.Unless
	case *operation.Write:
		unless = op.Unless
	}
	if unless == "" {
		return true, nil
	}

	veto, err := c.eval.Unless(unless, c.evalContext(WithResult(value)))
	if err != nil {
		return false, err
	}
	return !veto, nil
}

func (c *OperationContext) evalContext(result ResultState) EvalContext {
	return EvalContext{
		Target:          c.target,
		Args:            c.args,
		Caches:          c.caches,
		Result:          result.Value,
		ResultAvailable: result.Available,
	}
}

// PutRequest is a deferred write: a context and an already-computed
// key, pending the final result value. Queued on Read misses and for
// Write operations, drained once the result is known.
type PutRequest struct {
	octx *OperationContext
	key  any
}

// Apply writes the value to every region of the request's operation,
// unless the operation's unless clause vetoes it.
func (r *PutRequest) Apply(ctx context.Context, value any) error {
	ok, err := r.octx.CanWrite(value)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for _, c := range r.octx.Caches() {
		c.Put(ctx, r.key, value)
	}
	return nil
}

// normalizeArgs flattens a variadic tail into the argument list so key
// generation sees one flat, ordered sequence.
func normalizeArgs(site operation.Site, args []any) []any {
	if !site.Variadic || len(args) == 0 {
		return args
	}
	last := reflect.ValueOf(args[len(args)-1])
	if !last.IsValid() || last.Kind() != reflect.Slice {
		return args
	}

	flattened := make([]any, 0, len(args)-1+last.Len())
	flattened = append(flattened, args[:len(args)-1]...)
	for i := 0; i < last.Len(); i++ {
		flattened = append(flattened, last.Index(i).Interface())
	}
	return flattened
}
