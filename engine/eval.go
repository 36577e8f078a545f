package engine

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/cacheops/cache"
)

// EvalContext is the structured state handed to an Evaluator for each
// expression: the invocation target, the normalized arguments, the
// resolved regions, and the call result when one exists yet.
type EvalContext struct {
	Target any
	Args   []any
	Caches []cache.Cache

	// Result is the underlying call's return value. Only meaningful
	// when ResultAvailable is true.
	Result          any
	ResultAvailable bool
}

// Evaluator evaluates opaque condition, unless, and key expressions.
// The engine treats expression strings as opaque; any expression that
// needs the result while ResultAvailable is false must return an error
// wrapping ErrResultUnavailable.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Determinism: evaluation must not mutate the evaluation context.
type Evaluator interface {
	// Condition evaluates a participation guard.
	Condition(expr string, ectx EvalContext) (bool, error)

	// Unless evaluates a write veto against the result. A true return
	// means the write is rejected.
	Unless(expr string, ectx EvalContext) (bool, error)

	// Key evaluates a key expression to a comparable key value.
	Key(expr string, ectx EvalContext) (any, error)
}

// ConditionFunc is a typed predicate registered for a condition or
// unless expression string.
type ConditionFunc func(ectx EvalContext) (bool, error)

// KeyFunc is a typed key computation registered for a key expression
// string.
type KeyFunc func(ectx EvalContext) (any, error)

// RequiresResult adapts a predicate over the call result into a
// ConditionFunc that signals ErrResultUnavailable before invocation.
func RequiresResult(fn func(result any) bool) ConditionFunc {
	return func(ectx EvalContext) (bool, error) {
		if !ectx.ResultAvailable {
			return false, ErrResultUnavailable
		}
		return fn(ectx.Result), nil
	}
}

// FuncEvaluator is an Evaluator backed by registered Go functions, one
// per expression string. It is the stand-in for an expression language:
// the declaration carries the string, the host registers its meaning.
type FuncEvaluator struct {
	mu         sync.RWMutex
	conditions map[string]ConditionFunc
	keys       map[string]KeyFunc
}

// NewFuncEvaluator creates an empty function-backed evaluator.
func NewFuncEvaluator() *FuncEvaluator {
	return &FuncEvaluator{
		conditions: make(map[string]ConditionFunc),
		keys:       make(map[string]KeyFunc),
	}
}

// RegisterCondition binds a predicate to a condition or unless
// expression string. Re-registering replaces the previous binding.
func (e *FuncEvaluator) RegisterCondition(expr string, fn ConditionFunc) *FuncEvaluator {
	e.mu.Lock()
	e.conditions[expr] = fn
	e.mu.Unlock()
	return e
}

// RegisterKey binds a key computation to a key expression string.
func (e *FuncEvaluator) RegisterKey(expr string, fn KeyFunc) *FuncEvaluator {
	e.mu.Lock()
	e.keys[expr] = fn
	e.mu.Unlock()
	return e
}

// Condition evaluates a registered participation guard.
func (e *FuncEvaluator) Condition(expr string, ectx EvalContext) (bool, error) {
	e.mu.RLock()
	fn, ok := e.conditions[expr]
	e.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: condition %q", ErrUnknownExpression, expr)
	}
	return fn(ectx)
}

// Unless evaluates a registered write veto. Conditions and unless
// clauses share the registration namespace.
func (e *FuncEvaluator) Unless(expr string, ectx EvalContext) (bool, error) {
	return e.Condition(expr, ectx)
}

// Key evaluates a registered key expression.
func (e *FuncEvaluator) Key(expr string, ectx EvalContext) (any, error) {
	e.mu.RLock()
	fn, ok := e.keys[expr]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrUnknownExpression, expr)
	}
	return fn(ectx)
}

// Ensure FuncEvaluator implements Evaluator
var _ Evaluator = (*FuncEvaluator)(nil)
