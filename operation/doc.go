// Package operation defines the declarative cache directives attached
// to call sites: Read, Write, and Invalidate declarations, the
// assembly-time validation rules that apply to them, and the Source
// combinators that map call sites to ordered declaration lists.
package operation
