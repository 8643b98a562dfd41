// Package types provides common value types used across the rental engine.
package types

// Principal is an externally-authenticated account identifier. The engine
// never verifies signatures itself; callers arrive already authenticated by
// the delivery layer.
type Principal string

// IsZero reports whether the principal is empty.
func (p Principal) IsZero() bool { return p == "" }

// String returns the raw principal identifier.
func (p Principal) String() string { return string(p) }
