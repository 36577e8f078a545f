// Package engine implements the declarative cache-decision engine: it
// takes the operations declared for a call site and orchestrates reads,
// writes, and invalidations around a single underlying invocation.
//
// The engine knows nothing about the call's business logic. It consumes
// an operation.Source for the declarations, an Evaluator for opaque
// condition/key expressions, and cache.Cache regions for storage, and
// guarantees the phased ordering of lookups, backfills, writes, and
// invalidations, plus single-flight reads on the sync fast path.
package engine
