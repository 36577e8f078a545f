package operation

import "strings"

// Site is a caller-supplied, stable call-site descriptor. ID must be
// unique per static call site and is used for memoization; Name is the
// human-readable call name matched by pattern sources.
type Site struct {
	ID   string
	Name string

	// Variadic marks the final argument as a variadic tail to be
	// flattened into the normalized argument list.
	Variadic bool
}

// Source supplies the ordered declaration list for a call site. A nil
// or empty result means the site is not cached.
type Source interface {
	Operations(site Site) []Operation
}

// Static is a Source backed by a fixed map from site ID to declarations.
type Static struct {
	ops map[string][]Operation
}

// NewStatic creates a Source over the given site-ID keyed declarations.
func NewStatic(ops map[string][]Operation) *Static {
	m := make(map[string][]Operation, len(ops))
	for id, list := range ops {
		m[id] = append([]Operation(nil), list...)
	}
	return &Static{ops: m}
}

// Operations returns the declarations registered for the site's ID.
func (s *Static) Operations(site Site) []Operation {
	return s.ops[site.ID]
}

// Composite concatenates the results of multiple sources in
// registration order.
type Composite struct {
	sources []Source
}

// NewComposite creates a Source aggregating the given sources.
func NewComposite(sources ...Source) *Composite {
	return &Composite{sources: append([]Source(nil), sources...)}
}

// Operations concatenates each source's declarations for the site.
func (c *Composite) Operations(site Site) []Operation {
	var ops []Operation
	for _, src := range c.sources {
		ops = append(ops, src.Operations(site)...)
	}
	return ops
}

// NameMatch maps call names to declarations, supporting "xxx*", "*xxx",
// "*xxx*", and exact patterns. An exact match wins outright; otherwise
// the longest matching pattern wins.
type NameMatch struct {
	patterns []string
	ops      map[string][]Operation
}

// NewNameMatch creates an empty name-pattern source.
func NewNameMatch() *NameMatch {
	return &NameMatch{ops: make(map[string][]Operation)}
}

// Add registers declarations for a call-name pattern. Re-registering a
// pattern replaces its declarations. Not safe for concurrent use with
// Operations; register everything up front.
func (n *NameMatch) Add(pattern string, ops ...Operation) *NameMatch {
	if _, exists := n.ops[pattern]; !exists {
		n.patterns = append(n.patterns, pattern)
	}
	n.ops[pattern] = append([]Operation(nil), ops...)
	return n
}

// Operations returns the declarations for the best-matching pattern.
func (n *NameMatch) Operations(site Site) []Operation {
	if ops, ok := n.ops[site.Name]; ok {
		return ops
	}

	// Look for the most specific pattern match.
	var best string
	var bestOps []Operation
	for _, pattern := range n.patterns {
		if simpleMatch(pattern, site.Name) && (best == "" || len(best) <= len(pattern)) {
			best = pattern
			bestOps = n.ops[pattern]
		}
	}
	return bestOps
}

// simpleMatch matches a call name against "xxx*", "*xxx", "*xxx*", or
// an exact pattern.
func simpleMatch(pattern, name string) bool {
	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) >= 2:
		return strings.Contains(name, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(name, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	default:
		return pattern == name
	}
}

// Ensure the combinators implement Source
var (
	_ Source = (*Static)(nil)
	_ Source = (*Composite)(nil)
	_ Source = (*NameMatch)(nil)
)
