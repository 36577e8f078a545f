// Package cache defines the cache region contract used by the decision
// engine, together with in-memory and Redis-backed implementations.
//
// A region is a named key-value space. Get distinguishes a missing
// mapping from a mapping that holds nil, and GetOrLoad offers an
// at-most-once-per-key load under concurrent access.
package cache
