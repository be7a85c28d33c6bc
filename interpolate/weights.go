package interpolate

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// Weights holds the simplex vertices and barycentric weights of a query set
// against a source cloud. A query outside the hull has Simplex -1 and an
// empty row in the interpolation matrix.
type Weights struct {
	Vertices [][]int
	Weights  [][]float64
	Simplex  []int
	NSource  int
	matrix   *sparse.CSR
	tri      *Triangulation
}

func BuildWeights(source, query [][]float64) (w *Weights, err error) {
	var tri *Triangulation
	if tri, err = NewDelaunay(source); err != nil {
		return
	}
	return NewWeights(tri, query)
}

// NewWeights locates every query point in an existing triangulation.
func NewWeights(tri *Triangulation, query [][]float64) (w *Weights, err error) {
	var (
		M   = len(query)
		nv  = tri.Dim + 1
		ia  = make([]int, M+1)
		ja  []int
		val []float64
	)
	w = &Weights{
		Vertices: make([][]int, M),
		Weights:  make([][]float64, M),
		Simplex:  make([]int, M),
		NSource:  len(tri.Points),
		tri:      tri,
	}
	for i, q := range query {
		if len(q) != tri.Dim {
			return nil, fmt.Errorf("query %d has %d coordinates, expected %d", i, len(q), tri.Dim)
		}
		s, lambda := tri.Locate(q)
		w.Simplex[i] = s
		w.Vertices[i] = make([]int, nv)
		w.Weights[i] = make([]float64, nv)
		if s == -1 {
			for j := range w.Vertices[i] {
				w.Vertices[i][j] = -1
			}
			ia[i+1] = ia[i]
			continue
		}
		copy(w.Vertices[i], tri.Simplices[s])
		copy(w.Weights[i], lambda)
		ja, val = appendRow(ja, val, w.Vertices[i], w.Weights[i])
		ia[i+1] = len(ja)
	}
	if M > 0 && w.NSource > 0 {
		w.matrix = sparse.NewCSR(M, w.NSource, ia, ja, val)
	}
	return
}

// appendRow adds one CSR row with ascending, merged column indices
func appendRow(ja []int, val []float64, vertices []int, weights []float64) ([]int, []float64) {
	start := len(ja)
	for j, col := range vertices {
		pos := len(ja)
		for k := start; k < len(ja); k++ {
			if ja[k] >= col {
				pos = k
				break
			}
		}
		if pos < len(ja) && ja[pos] == col {
			val[pos] += weights[j]
			continue
		}
		ja = append(ja, 0)
		val = append(val, 0)
		copy(ja[pos+1:], ja[pos:])
		copy(val[pos+1:], val[pos:])
		ja[pos], val[pos] = col, weights[j]
	}
	return ja, val
}

func (w *Weights) Len() int { return len(w.Simplex) }

func (w *Weights) Inside(i int) bool { return w.Simplex[i] != -1 }

func (w *Weights) NumInside() (n int) {
	for _, s := range w.Simplex {
		if s != -1 {
			n++
		}
	}
	return
}

// ApplyWeights evaluates sum_j Weights[i][j]*values[Vertices[i][j]] for every
// query i. Queries outside the hull get 0; test them with Inside.
func ApplyWeights(values []float64, w *Weights) (out []float64) {
	if len(values) != w.NSource {
		panic(fmt.Errorf("%d values for %d source points", len(values), w.NSource))
	}
	out = make([]float64, w.Len())
	if w.matrix == nil {
		return
	}
	w.matrix.DoNonZero(func(i, j int, v float64) {
		out[i] += v * values[j]
	})
	return
}

// Evaluate reconstructs values at the query points of w. Queries outside the
// hull receive fill.
func Evaluate(values []float64, w *Weights, method Method, fill float64) (out []float64, err error) {
	if len(values) != w.NSource {
		return nil, fmt.Errorf("%d values for %d source points", len(values), w.NSource)
	}
	switch method {
	case Linear:
		out = ApplyWeights(values, w)
	case Cubic:
		var cp *cubicPatch
		if cp, err = newCubicPatch(w.tri, values); err != nil {
			return nil, err
		}
		out = make([]float64, w.Len())
		for i := range out {
			if w.Inside(i) {
				out[i] = cp.eval(values, w.Simplex[i], w.Weights[i])
			}
		}
	default:
		return nil, fmt.Errorf("unsupported method %v", method)
	}
	for i := range out {
		if !w.Inside(i) {
			out[i] = fill
		}
	}
	return
}
