package geometry2D

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHillElevation(t *testing.T) {
	{ // Crest and flat bottom
		h := HillElevation([]float64{0, 9, 4.5, 2})
		assert.Equal(t, 1., h[0])
		assert.Equal(t, 1., h[1]) // Mirrored crest at the end of the period
		assert.Equal(t, 0., h[2])
		assert.Equal(t, 0., h[3])
	}
	{ // Continuity at the fold
		xFold := 128. / 28.
		eps := 1.e-9
		h := HillElevation([]float64{xFold - eps, xFold, xFold + eps})
		assert.InDelta(t, h[0], h[1], 1.e-12)
		assert.InDelta(t, h[2], h[1], 1.e-12)
	}
	{ // Symmetric about the fold, monotone descent over the windward side
		var x []float64
		for i := 0; i <= 50; i++ {
			x = append(x, float64(i)/28.)
		}
		h := HillElevation(x)
		var xm []float64
		for _, xx := range x {
			xm = append(xm, 9-xx)
		}
		hm := HillElevation(xm)
		for i := range h {
			assert.InDelta(t, h[i], hm[i], 1.e-12)
			assert.True(t, h[i] >= 0 && h[i] <= 1)
		}
		for i := 1; i < len(h); i++ {
			assert.True(t, h[i] <= h[i-1]+1.e-12, "x = %v", x[i])
		}
	}
	{ // Segment joins are continuous to the fitted precision
		for _, xstar := range []float64{9, 14, 20, 30, 40} {
			lo := HillElevation([]float64{(xstar - 1.e-9) / 28.})[0]
			hi := HillElevation([]float64{xstar / 28.})[0]
			assert.InDelta(t, lo, hi, 1.e-3, "xstar = %v", xstar)
		}
	}
	assert.Empty(t, HillElevation(nil))
}

func TestAnalysisPlanes(t *testing.T) {
	assert.Equal(t, []float64{0.05, 0.5, 1, 2, 3, 4, 5, 6, 7, 8}, AnalysisPlanes())
}

func TestInCircle(t *testing.T) {
	var (
		R        = []float64{-0.3333, 0.9, -0.9, 0.0, -1, 1, -1, 1.2, -0.9999999}
		S        = []float64{-0.3333, -0.9, 0.9, 0.0, -1, -1, 1, 1.2, -1}
		expected = []bool{true, true, true, true, false, false, false, false, true}
	)
	for i, r := range R {
		s := S[i]
		// Both windings of the base triangle
		assert.Equal(t, expected[i], InCircle(-1, -1, 1, -1, -1, 1, r, s), "point %d", i)
		assert.Equal(t, expected[i], InCircle(-1, 1, 1, -1, -1, -1, r, s), "point %d", i)
	}
	assert.True(t, Orient2D(0, 0, 1, 0, 0, 1) > 0)
	assert.True(t, Orient2D(0, 0, 0, 1, 1, 0) < 0)
}
