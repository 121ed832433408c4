// Package pairing normalizes an unordered profile pair into the canonical
// storage key used for pair-unique rows. The order is the total lexicographic
// order over the id type, never insertion order or arrival time, so every
// caller computes the same key under races.
package pairing

// Canonical returns the two ids as (low, high).
func Canonical(a, b string) (low, high string) {
	if a > b {
		return b, a
	}
	return a, b
}
