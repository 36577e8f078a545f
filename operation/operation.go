package operation

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a cache operation.
type Kind int

const (
	// KindRead serves a cached value and backfills on miss.
	KindRead Kind = iota
	// KindWrite always stores the call's result.
	KindWrite
	// KindInvalidate evicts keys or clears whole regions.
	KindInvalidate
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindInvalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Common holds the fields shared by every operation kind. Operations
// are built once at configuration time and are immutable thereafter.
type Common struct {
	// Name is a diagnostic identifier, typically the call signature.
	Name string

	// CacheNames lists the target region names, in order.
	CacheNames []string

	// Condition is an optional guard expression. Absent means always true.
	Condition string

	// Key is an optional expression computing the lookup key directly.
	// Mutually exclusive with KeyGenerator.
	Key string

	// KeyGenerator names a registered key generator to use instead of
	// the default. Mutually exclusive with Key.
	KeyGenerator string

	// CacheManager names a registered manager used to resolve regions.
	// Mutually exclusive with CacheResolver.
	CacheManager string

	// CacheResolver names a registered resolver.
	// Mutually exclusive with CacheManager.
	CacheResolver string
}

// Base returns the shared fields of the operation.
func (c *Common) Base() *Common {
	return c
}

func (c *Common) describe(kind Kind) string {
	return fmt.Sprintf("%s[%s] caches=[%s]", kind, c.Name, strings.Join(c.CacheNames, ","))
}

// Operation is a single declarative cache directive. The concrete type
// is one of *Read, *Write, or *Invalidate.
type Operation interface {
	Base() *Common
	Kind() Kind
	String() string
}

// Read declares cache-aside behavior: serve a hit, invoke and backfill
// on a miss.
type Read struct {
	Common

	// Unless is an optional veto expression evaluated against the
	// result; when it passes the write is rejected.
	Unless string

	// Sync requests single-flight lookup semantics. A sync read must be
	// the only operation on its call site, resolve to exactly one
	// region, and carry no Unless clause.
	Sync bool
}

// Kind returns KindRead.
func (o *Read) Kind() Kind { return KindRead }

func (o *Read) String() string { return o.describe(KindRead) }

// Write declares an unconditional store of the call's result.
type Write struct {
	Common

	// Unless is an optional veto expression evaluated against the
	// result; when it passes the write is rejected.
	Unless string
}

// Kind returns KindWrite.
func (o *Write) Kind() Kind { return KindWrite }

func (o *Write) String() string { return o.describe(KindWrite) }

// Invalidate declares an eviction of one key or a whole region.
type Invalidate struct {
	Common

	// CacheWide clears the entire region instead of evicting one key.
	CacheWide bool

	// BeforeInvocation runs the eviction before the underlying call
	// instead of after it.
	BeforeInvocation bool
}

// Kind returns KindInvalidate.
func (o *Invalidate) Kind() Kind { return KindInvalidate }

func (o *Invalidate) String() string { return o.describe(KindInvalidate) }

// Ensure the three variants implement Operation
var (
	_ Operation = (*Read)(nil)
	_ Operation = (*Write)(nil)
	_ Operation = (*Invalidate)(nil)
)
