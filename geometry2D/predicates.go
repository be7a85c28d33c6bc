package geometry2D

import "math"

// Orient2D is twice the signed area of a-b-c, positive when counter-clockwise.
func Orient2D(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (cx-ax)*(by-ay)
}

// InCircle reports whether d lies strictly inside the circumcircle of a-b-c.
// The triangle may be given in either winding.
func InCircle(ax, ay, bx, by, cx, cy, dx, dy float64) (inside bool) {
	// Calculate handedness, counter-clockwise is (positive) and clockwise is (negative)
	signBit := math.Signbit(Orient2D(ax, ay, bx, by, cx, cy))
	ax_ := ax - dx
	ay_ := ay - dy
	bx_ := bx - dx
	by_ := by - dy
	cx_ := cx - dx
	cy_ := cy - dy
	det := (ax_*ax_+ay_*ay_)*(bx_*cy_-cx_*by_) -
		(bx_*bx_+by_*by_)*(ax_*cy_-cx_*ay_) +
		(cx_*cx_+cy_*cy_)*(ax_*by_-bx_*ay_)
	if signBit {
		return det < 0
	}
	return det > 0
}
