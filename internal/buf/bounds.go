// Package buf contains overflow-safe offset arithmetic for walking blocks in
// the heap arena. Neighbour discovery never dereferences an offset that has
// not passed one of these checks.
package buf

import (
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Within reports whether the n bytes starting at off lie inside [lo, hi).
func Within(lo, hi, off, n int) bool {
	if n < 0 || off < lo {
		return false
	}
	end, ok := AddOverflowSafe(off, n)
	return ok && end <= hi
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if !Within(0, len(b), off, n) {
		return nil, false
	}
	return b[off : off+n], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	return Within(0, len(b), off, n)
}
