// Package uid generates identifiers.
package uid

// NumberID generates numeric identifiers (primary keys).
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers (correlation IDs).
type StringID interface {
	Generate() string
}
