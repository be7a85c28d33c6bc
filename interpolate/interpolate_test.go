package interpolate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Structured columns over a sloped floor, the layout of a plane slab
func slabPoints(nx, ny int) (pts [][]float64) {
	for i := 0; i < nx; i++ {
		x := 0.8 + 0.1*float64(i)
		h := 0.2 * x
		for j := 0; j <= ny; j++ {
			pts = append(pts, []float64{x, h + (3-h)*float64(j)/float64(ny)})
		}
	}
	return
}

func cloud(n, dim int, seed int64) (pts [][]float64) {
	rnd := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		p := make([]float64, dim)
		for r := range p {
			p[r] = rnd.Float64()
		}
		pts = append(pts, p)
	}
	// Corners make the hull the unit box
	for c := 0; c < 1<<dim; c++ {
		p := make([]float64, dim)
		for r := range p {
			p[r] = float64((c >> r) & 1)
		}
		pts = append(pts, p)
	}
	return
}

func simplexVolume(tri *Triangulation, s int) float64 {
	var (
		v = tri.Simplices[s]
		o = tri.Points[v[tri.Dim]]
		d [3][3]float64
	)
	for k := 0; k < tri.Dim; k++ {
		for r := 0; r < tri.Dim; r++ {
			d[k][r] = tri.Points[v[k]][r] - o[r]
		}
	}
	if tri.Dim == 2 {
		return math.Abs(d[0][0]*d[1][1]-d[0][1]*d[1][0]) / 2
	}
	return math.Abs(d[0][0]*(d[1][1]*d[2][2]-d[1][2]*d[2][1])-
		d[0][1]*(d[1][0]*d[2][2]-d[1][2]*d[2][0])+
		d[0][2]*(d[1][0]*d[2][1]-d[1][1]*d[2][0])) / 6
}

func TestDelaunay(t *testing.T) {
	{ // The simplices tile the hull of a structured slab
		pts := slabPoints(5, 10)
		tri, err := NewDelaunay(pts)
		require.NoError(t, err)
		var area, expected float64
		for s := range tri.Simplices {
			area += simplexVolume(tri, s)
		}
		for i := 0; i < 4; i++ {
			xm := 0.85 + 0.1*float64(i)
			expected += 0.1 * (3 - 0.2*xm)
		}
		assert.InDelta(t, expected, area, 1.e-9)
		var nValid int
		for s := range tri.Simplices {
			if !tri.IsDegenerate(s) {
				nValid++
			}
		}
		assert.Equal(t, 2*4*10, nValid)
		// Neighbor relation is symmetric
		for s, nbrs := range tri.Neighbors {
			for _, nb := range nbrs {
				if nb == -1 {
					continue
				}
				assert.Contains(t, tri.Neighbors[nb], s)
			}
		}
	}
	{ // 3-D unit cube volume
		tri, err := NewDelaunay(cloud(200, 3, 7))
		require.NoError(t, err)
		var vol float64
		for s := range tri.Simplices {
			vol += simplexVolume(tri, s)
		}
		assert.InDelta(t, 1., vol, 1.e-9)
	}
	{ // Structured 3-D grid
		var pts [][]float64
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				for k := 0; k < 3; k++ {
					pts = append(pts, []float64{0.5 * float64(i), 0.5 * float64(j), 0.5 * float64(k)})
				}
			}
		}
		tri, err := NewDelaunay(pts)
		require.NoError(t, err)
		var vol float64
		for s := range tri.Simplices {
			if !tri.IsDegenerate(s) {
				vol += simplexVolume(tri, s)
			}
		}
		assert.InDelta(t, 2.25, vol, 1.e-9)
		for _, q := range [][]float64{{0.3, 0.7, 0.2}, {1.5, 1.5, 1.0}, {0.75, 0.75, 0.5}, {0, 0, 0}} {
			assert.NotEqual(t, -1, tri.FindSimplex(q), "query %v", q)
		}
		assert.Equal(t, -1, tri.FindSimplex([]float64{1.6, 0.1, 0.1}))
	}
	{ // Duplicates collapse onto the first occurrence
		pts := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 0}, {1, 1}, {0, 0}}
		tri, err := NewDelaunay(pts)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 1, 4, 0}, tri.Representative)
		assert.Equal(t, 2, len(tri.Simplices))
		for _, v := range tri.Simplices {
			assert.NotContains(t, v, 3)
			assert.NotContains(t, v, 5)
		}
	}
	{ // Degenerate input
		_, err := NewDelaunay([][]float64{{0, 0}, {1, 1}, {0, 0}})
		assert.True(t, errors.Is(err, ErrDegenerateInput))
		_, err = NewDelaunay([][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
		assert.True(t, errors.Is(err, ErrDegenerateInput))
		_, err = NewDelaunay([][]float64{{0}, {1}})
		assert.True(t, errors.Is(err, ErrDimension))
		_, err = NewDelaunay(nil)
		assert.True(t, errors.Is(err, ErrDegenerateInput))
	}
	{ // Repeated builds are identical
		a, err := NewDelaunay(cloud(50, 2, 3))
		require.NoError(t, err)
		b, err := NewDelaunay(cloud(50, 2, 3))
		require.NoError(t, err)
		assert.Equal(t, a.Simplices, b.Simplices)
	}
}

func TestBuildWeights(t *testing.T) {
	for _, dim := range []int{2, 3} {
		var (
			source = cloud(150, dim, int64(dim))
			rnd    = rand.New(rand.NewSource(11))
			query  [][]float64
		)
		for i := 0; i < 100; i++ {
			q := make([]float64, dim)
			for r := range q {
				q[r] = 0.05 + 0.9*rnd.Float64()
			}
			query = append(query, q)
		}
		query = append(query, make([]float64, dim)) // A hull vertex
		outside := make([]float64, dim)
		outside[0] = 1.5
		query = append(query, outside)
		w, err := BuildWeights(source, query)
		require.NoError(t, err)
		require.Equal(t, len(query), w.Len())
		assert.Equal(t, len(query)-1, w.NumInside())
		for i := 0; i < len(query)-1; i++ {
			require.True(t, w.Inside(i), "dim %d query %d", dim, i)
			assert.Len(t, w.Weights[i], dim+1)
			var sum float64
			for _, wt := range w.Weights[i] {
				sum += wt
				assert.True(t, wt >= -1.e-10)
			}
			assert.InDelta(t, 1., sum, 1.e-12)
		}
		last := len(query) - 1
		assert.False(t, w.Inside(last))
		assert.Equal(t, -1, w.Simplex[last])
		// Applying the weights to the coordinates gives back the query point
		for r := 0; r < dim; r++ {
			coord := make([]float64, len(source))
			for i, p := range source {
				coord[i] = p[r]
			}
			got := ApplyWeights(coord, w)
			for i := 0; i < last; i++ {
				assert.InDelta(t, query[i][r], got[i], 1.e-8)
			}
			assert.Equal(t, 0., got[last])
		}
		assert.Panics(t, func() { ApplyWeights([]float64{1}, w) })
	}
}

func TestPlaneLine(t *testing.T) {
	var (
		source = slabPoints(4, 10)
		ygrid  []float64
		linear = make([]float64, len(source))
		quad   = make([]float64, len(source))
	)
	for i, p := range source {
		linear[i] = 2*p[0] - 3*p[1] + 0.5
		quad[i] = p[1] * p[1]
	}
	h := 0.2
	for j := 0; j < 25; j++ {
		ygrid = append(ygrid, h+(3-h)*float64(j)/24)
	}
	ygrid = append(ygrid, 3.5) // Above the cloud
	for _, method := range []Method{Linear, Cubic} {
		out, err := PlaneLine(source, [][]float64{linear, quad}, 1., ygrid, method, -99)
		require.NoError(t, err)
		require.Len(t, out, 2)
		for j, y := range ygrid[:25] {
			assert.InDelta(t, 2-3*y+0.5, out[0][j], 1.e-9, "%v at y=%v", method, y)
			assert.InDelta(t, y*y, out[1][j], 0.05, "%v at y=%v", method, y)
		}
		assert.Equal(t, -99., out[0][25])
		assert.Equal(t, -99., out[1][25])
	}
	{ // Cubic patches interpolate the nodal values
		out, err := PlaneLine(source, [][]float64{quad}, 1., []float64{source[22][1]}, Cubic, 0)
		require.NoError(t, err)
		assert.InDelta(t, quad[22], out[0][0], 1.e-12)
	}
	_, err := PlaneLine(source, [][]float64{{1, 2}}, 1., ygrid, Linear, 0)
	assert.Error(t, err)
	_, err = Griddata(cloud(20, 3, 1), [][]float64{make([]float64, 28)}, [][]float64{{0.5, 0.5, 0.5}}, Cubic, 0)
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Cubic")
	assert.NoError(t, err)
	assert.Equal(t, Cubic, m)
	m, err = ParseMethod("linear")
	assert.NoError(t, err)
	assert.Equal(t, "linear", m.String())
	_, err = ParseMethod("nearest")
	assert.Error(t, err)
}

func TestWeightsCache(t *testing.T) {
	var (
		wc     = NewWeightsCache()
		source = slabPoints(4, 10)
		query  = [][]float64{{1, 1}, {1, 2}}
	)
	w1, err := wc.Get("plane 0", source, query)
	require.NoError(t, err)
	w2, err := wc.Get("plane 0", source, query)
	require.NoError(t, err)
	assert.True(t, w1 == w2)
	assert.Equal(t, 1, wc.Hits)
	assert.Equal(t, 1, wc.Builds)
	// Moving a source point invalidates the entry
	moved := slabPoints(4, 10)
	moved[3][1] += 1.e-3
	w3, err := wc.Get("plane 0", moved, query)
	require.NoError(t, err)
	assert.False(t, w1 == w3)
	assert.Equal(t, 2, wc.Builds)
	// Failures are cached as well
	_, err = wc.Get("flat", [][]float64{{0, 0}, {1, 1}, {2, 2}}, query)
	assert.True(t, errors.Is(err, ErrDegenerateInput))
	_, err = wc.Get("flat", [][]float64{{0, 0}, {1, 1}, {2, 2}}, query)
	assert.True(t, errors.Is(err, ErrDegenerateInput))
	assert.Equal(t, 3, wc.Builds)
	assert.Equal(t, 2, wc.Len())
	assert.NotEqual(t, Fingerprint(source), Fingerprint(moved))
	assert.NotEqual(t, Fingerprint(source, query), Fingerprint(query, source))
}

func TestEvaluate(t *testing.T) {
	var (
		source = slabPoints(4, 10)
		query  = [][]float64{{1, 1}, {0.95, 2.5}, {2, 1}}
		values = make([]float64, len(source))
	)
	for i, p := range source {
		values[i] = p[0] + 2*p[1]
	}
	w, err := BuildWeights(source, query)
	require.NoError(t, err)
	for _, method := range []Method{Linear, Cubic} {
		out, err := Evaluate(values, w, method, -1)
		require.NoError(t, err)
		assert.InDelta(t, 3., out[0], 1.e-9, "%v", method)
		assert.InDelta(t, 5.95, out[1], 1.e-9, "%v", method)
		assert.Equal(t, -1., out[2])
	}
	_, err = Evaluate(values[1:], w, Linear, 0)
	assert.Error(t, err)
	_, err = Evaluate(values, w, Method(7), 0)
	assert.Error(t, err)
}
