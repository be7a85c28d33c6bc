package utils

import (
	"math"
)

// POW multiplies out small integer powers and defers to math.Pow otherwise
func POW(x float64, p int) (y float64) {
	if p > 8 || p < -8 {
		return math.Pow(x, float64(p))
	}
	n := p
	if n < 0 {
		n = -n
	}
	y = 1
	for sq := x; n > 0; n >>= 1 {
		if n&1 == 1 {
			y *= sq
		}
		sq *= sq
	}
	if p < 0 {
		y = 1. / y
	}
	return
}

// RelEqual compares a and b to a tolerance relative to the larger of 1 and |b|
func RelEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}
