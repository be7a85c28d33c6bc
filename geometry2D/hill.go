package geometry2D

import (
	"math"

	"github.com/notargets/hillpp/utils"
)

// HillHeight is the crest height of the periodic hill in the polynomial's units.
const HillHeight = 28.

type hillSegment struct {
	lo, hi float64
	c      [4]float64
}

// Piecewise cubic fit of the hill crest, ystar = c0 + c1*x + c2*x^2 + c3*x^3
// over lo <= xstar < hi.
var hillSegments = []hillSegment{
	{0, 9, [4]float64{2.800000000000e01, 0.000000000000e00, 6.775070969851e-03, -2.124527775800e-03}},
	{9, 14, [4]float64{2.507355893131e01, 9.754803562315e-01, -1.016116352781e-01, 1.889794677828e-03}},
	{14, 20, [4]float64{2.579601052357e01, 8.206693007457e-01, -9.055370274339e-02, 1.626510569859e-03}},
	{20, 30, [4]float64{4.046435022819e01, -1.379581654948e00, 1.945884504128e-02, -2.070318932190e-04}},
	{30, 40, [4]float64{1.792461334664e01, 8.743920332081e-01, -5.567361123058e-02, 6.277731764683e-04}},
	{40, 50, [4]float64{5.639011190988e01, -2.010520359035e00, 1.644919857549e-02, 2.674976141766e-05}},
}

// HillElevation returns the lower wall height at each streamwise location x,
// normalized by the hill height. The profile is mirrored about xstar = 128.
func HillElevation(x []float64) (h []float64) {
	h = make([]float64, len(x))
	for i, xx := range x {
		xstar := xx * HillHeight
		if xstar > 128 {
			xstar = 252 - xstar
		}
		h[i] = hillStar(xstar) / HillHeight
	}
	return
}

func hillStar(xstar float64) (ystar float64) {
	for n, seg := range hillSegments {
		if xstar < seg.lo || xstar >= seg.hi {
			continue
		}
		c := seg.c
		ystar = c[0] + c[1]*xstar + c[2]*utils.POW(xstar, 2) + c[3]*utils.POW(xstar, 3)
		switch n {
		case 0:
			ystar = math.Min(HillHeight, ystar)
		case len(hillSegments) - 1:
			ystar = math.Max(0, ystar)
		}
		return
	}
	return 0
}

// AnalysisPlanes are the streamwise stations where profiles are reported.
func AnalysisPlanes() []float64 {
	return []float64{0.05, 0.5, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0}
}
