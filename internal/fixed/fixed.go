// Package fixed implements the signed 24.8 fixed-point representation used
// for normalized axis values (pressure, tilt). Fixed-point keeps
// normalization deterministic across platforms instead of accumulating
// float64 rounding error across repeated stage/commit cycles.
package fixed

import "math"

// Q24_8 is a signed fixed-point number with 24 integer bits and 8 fractional
// bits, backed by an int32. One unit is 1/256.
type Q24_8 int32

const (
	fracBits = 8
	fracOne  = 1 << fracBits

	// Max is the largest representable value. Normalization that would
	// overflow this on the positive end saturates here instead of wrapping.
	Max = Q24_8(math.MaxInt32)
	// Min is the smallest representable value (saturating floor).
	Min = Q24_8(math.MinInt32)
)

// FromFloat64 converts a float64 into Q24_8, saturating on overflow.
func FromFloat64(v float64) Q24_8 {
	scaled := v * fracOne
	if scaled >= float64(math.MaxInt32) {
		return Max
	}
	if scaled <= float64(math.MinInt32) {
		return Min
	}
	return Q24_8(math.Round(scaled))
}

// Float64 converts back to a float64.
func (q Q24_8) Float64() float64 {
	return float64(q) / fracOne
}

// Clamp restricts q to [lo, hi].
func Clamp(q, lo, hi Q24_8) Q24_8 {
	if q < lo {
		return lo
	}
	if q > hi {
		return hi
	}
	return q
}
