package utils

import "math"

// DefaultTimeEpsilon is the tolerance used when comparing geological times (in Ma).
// Times are usually read from text files, so two values that print the same may
// differ in their last bits.
const DefaultTimeEpsilon = 1e-9

// RealEqual reports whether a and b are equal within epsilon. Infinities compare
// equal only to infinities of the same sign.
func RealEqual(a, b, epsilon float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= epsilon
}

// RealLessOrEqual reports whether a <= b, treating values within epsilon as equal.
func RealLessOrEqual(a, b, epsilon float64) bool {
	return a < b || RealEqual(a, b, epsilon)
}

// RealInClosedInterval reports whether t lies in [lo, hi] using tolerance-aware comparisons.
// The interval bounds may be passed in either order.
func RealInClosedInterval(t, lo, hi, epsilon float64) bool {
	if lo > hi {
		lo, hi = hi, lo
	}
	return RealLessOrEqual(lo, t, epsilon) && RealLessOrEqual(t, hi, epsilon)
}
