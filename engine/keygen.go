package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jonwraymond/cacheops/operation"
)

// KeyGenerator produces a lookup key from call arguments.
//
// Contract:
// - Determinism: equal argument sequences must produce equal keys.
// - Keys must be comparable values with stable equality; a generator
//   that keys on identity breaks caching silently. This is a caller
//   responsibility, not validated by the engine.
// - Concurrency: implementations must be safe for concurrent use.
type KeyGenerator interface {
	// Generate computes the key for an invocation.
	Generate(target any, site operation.Site, args []any) (any, error)
}

// noArgsKey is the fixed key for zero-argument calls.
type noArgsKey struct{}

func (noArgsKey) String() string { return "cacheops.NoArgsKey" }

// NoArgsKey is the sentinel key generated for zero-argument calls.
var NoArgsKey = noArgsKey{}

// CompositeKey is a key derived from an ordered multi-argument
// sequence. Two composite keys compare equal exactly when the canonical
// encodings of their argument sequences are equal.
type CompositeKey string

// DefaultKeyGenerator implements the default key policy: zero args
// yield NoArgsKey, a single arg is used as the key directly, and
// multiple args collapse into a CompositeKey over the ordered sequence.
type DefaultKeyGenerator struct{}

// NewDefaultKeyGenerator creates the default key generator.
func NewDefaultKeyGenerator() *DefaultKeyGenerator {
	return &DefaultKeyGenerator{}
}

// Generate computes a key from the normalized argument list.
func (g *DefaultKeyGenerator) Generate(_ any, _ operation.Site, args []any) (any, error) {
	switch len(args) {
	case 0:
		return NoArgsKey, nil
	case 1:
		// Single-arg keys are the raw value, directly comparable to it.
		return args[0], nil
	default:
		return compositeKey(args)
	}
}

// compositeKey hashes the canonical encoding of the argument sequence.
// Format: first 16 hex chars of SHA-256(canonical JSON(args)).
func compositeKey(args []any) (CompositeKey, error) {
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("engine: failed to canonicalize arguments: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return CompositeKey(hex.EncodeToString(hash[:8])), nil
}

// canonicalize produces a deterministic JSON representation of the
// value. Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyGenerator implements KeyGenerator
var _ KeyGenerator = (*DefaultKeyGenerator)(nil)
