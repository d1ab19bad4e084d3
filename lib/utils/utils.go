// Package utils is a small home for arithmetic helpers shared across
// packages; currently just the rounding used by the matrix-folding math
// of lib/database.
package utils

import "math"

// DivideAndRoundUpToMultiple divides dividend by divisor and rounds the
// result up to the nearest multiple of multiple.
func DivideAndRoundUpToMultiple(dividend, divisor, multiple int) int {
	return int(math.Ceil(float64(dividend)/float64(divisor*multiple))) * multiple
}
