package interpolate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// cubicPatch evaluates a cubic Bernstein-Bezier triangle built from vertex
// values and vertex gradients. Edge ordinates follow the vertex tangent
// planes; the center ordinate gives quadratic precision.
type cubicPatch struct {
	tri       *Triangulation
	gradients [][2]float64
}

// newCubicPatch estimates a gradient at every vertex by least squares over
// its triangulation neighbors.
func newCubicPatch(tri *Triangulation, values []float64) (cp *cubicPatch, err error) {
	if tri.Dim != 2 {
		return nil, fmt.Errorf("cubic reconstruction in %d-D: %w", tri.Dim, ErrDimension)
	}
	cp = &cubicPatch{
		tri:       tri,
		gradients: make([][2]float64, len(tri.Points)),
	}
	for i, nbrs := range tri.VertexNeighbors() {
		if len(nbrs) < 2 {
			continue
		}
		var (
			A = mat.NewSymDense(2, nil)
			b = mat.NewVecDense(2, nil)
			g mat.VecDense
			p = tri.Points[i]
		)
		for _, j := range nbrs {
			dx, dy := tri.Points[j][0]-p[0], tri.Points[j][1]-p[1]
			df := values[j] - values[i]
			A.SetSym(0, 0, A.At(0, 0)+dx*dx)
			A.SetSym(0, 1, A.At(0, 1)+dx*dy)
			A.SetSym(1, 1, A.At(1, 1)+dy*dy)
			b.SetVec(0, b.AtVec(0)+dx*df)
			b.SetVec(1, b.AtVec(1)+dy*df)
		}
		if err := g.SolveVec(A, b); !usableSolve(err) {
			continue // Collinear neighbors, leave a flat tangent plane
		}
		cp.gradients[i] = [2]float64{g.AtVec(0), g.AtVec(1)}
	}
	return
}

// edgeOrdinate is the Bezier ordinate one third of the way from vertex a to b
func (cp *cubicPatch) edgeOrdinate(values []float64, a, b int) float64 {
	var (
		pa, pb = cp.tri.Points[a], cp.tri.Points[b]
		g      = cp.gradients[a]
	)
	return values[a] + (g[0]*(pb[0]-pa[0])+g[1]*(pb[1]-pa[1]))/3
}

func (cp *cubicPatch) eval(values []float64, s int, l []float64) float64 {
	var (
		v          = cp.tri.Simplices[s]
		f0, f1, f2 = values[v[0]], values[v[1]], values[v[2]]
		b210       = cp.edgeOrdinate(values, v[0], v[1])
		b201       = cp.edgeOrdinate(values, v[0], v[2])
		b120       = cp.edgeOrdinate(values, v[1], v[0])
		b021       = cp.edgeOrdinate(values, v[1], v[2])
		b102       = cp.edgeOrdinate(values, v[2], v[0])
		b012       = cp.edgeOrdinate(values, v[2], v[1])
		E          = b210 + b201 + b120 + b021 + b102 + b012
		b111       = E/4 - (f0+f1+f2)/6
		l0, l1, l2 = l[0], l[1], l[2]
	)
	return f0*l0*l0*l0 + f1*l1*l1*l1 + f2*l2*l2*l2 +
		3*(b210*l0*l0*l1+b201*l0*l0*l2+b120*l0*l1*l1+
			b021*l1*l1*l2+b102*l0*l2*l2+b012*l1*l2*l2) +
		6*b111*l0*l1*l2
}
