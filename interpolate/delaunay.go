package interpolate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/hillpp/geometry2D"
)

var (
	ErrDegenerateInput = errors.New("degenerate point set")
	ErrDimension       = errors.New("only 2-D and 3-D point sets are supported")
)

const (
	superScale  = 1000.  // Super simplex size in normalized coordinates
	joggleScale = 1.e-9  // Perturbation applied to normalized coordinates
	insideTol   = 1.e-10 // Barycentric tolerance for point location
	flatTol     = 1.e-10 // Relative volume below which a simplex is degenerate
)

// Triangulation is a Delaunay triangulation of a scattered point set. Vertex
// ids in Simplices refer to the caller's point indices; duplicated points are
// represented by the first occurrence.
type Triangulation struct {
	Dim            int
	Points         [][]float64
	Simplices      [][]int
	Neighbors      [][]int // Neighbors[s][j] is opposite vertex j, -1 on the hull
	Representative []int   // Input index to the retained input index
	transforms     []*affine
	boxTol         float64
}

// affine maps a point to barycentric coordinates: lambda[0:D] = Tinv*(q - origin)
type affine struct {
	Tinv   *mat.Dense
	origin []float64
	lo, hi []float64
}

func NewDelaunay(points [][]float64) (tri *Triangulation, err error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no points: %w", ErrDegenerateInput)
	}
	dim := len(points[0])
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("dimension %d: %w", dim, ErrDimension)
	}
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("point %d has %d coordinates, expected %d", i, len(p), dim)
		}
	}
	tri = &Triangulation{
		Dim:            dim,
		Points:         points,
		Representative: make([]int, len(points)),
	}
	unique := tri.collapseDuplicates()
	if len(unique) < dim+1 {
		return nil, fmt.Errorf("%d unique points in %d-D: %w", len(unique), dim, ErrDegenerateInput)
	}
	normalized, scale := normalize(points, unique, dim)
	if scale == 0 {
		return nil, fmt.Errorf("zero extent: %w", ErrDegenerateInput)
	}
	tri.boxTol = 1.e-8 * scale
	bw := newBowyerWatson(dim, normalized)
	for u := range unique {
		if err = bw.insert(u); err != nil {
			return nil, err
		}
	}
	bw.export(tri, unique)
	var nValid int
	for s := range tri.Simplices {
		if tri.transforms[s] != nil {
			nValid++
		}
	}
	if nValid == 0 {
		return nil, fmt.Errorf("all %d simplices are flat: %w", len(tri.Simplices), ErrDegenerateInput)
	}
	return
}

// collapseDuplicates sorts the points lexicographically, which is also the
// insertion order, and returns the retained input indices.
func (tri *Triangulation) collapseDuplicates() (unique []int) {
	order := make([]int, len(tri.Points))
	for i := range order {
		order[i] = i
	}
	less := func(a, b []float64) bool {
		for r := range a {
			if a[r] != b[r] {
				return a[r] < b[r]
			}
		}
		return false
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(tri.Points[order[i]], tri.Points[order[j]])
	})
	for n, i := range order {
		if n > 0 && !less(tri.Points[order[n-1]], tri.Points[i]) {
			tri.Representative[i] = tri.Representative[order[n-1]]
			continue
		}
		tri.Representative[i] = i
		unique = append(unique, i)
	}
	return
}

func normalize(points [][]float64, unique []int, dim int) (norm [][3]float64, scale float64) {
	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for r := 0; r < dim; r++ {
		lo[r], hi[r] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range unique {
		for r := 0; r < dim; r++ {
			lo[r] = math.Min(lo[r], points[i][r])
			hi[r] = math.Max(hi[r], points[i][r])
		}
	}
	for r := 0; r < dim; r++ {
		scale = math.Max(scale, hi[r]-lo[r])
	}
	if scale == 0 {
		return
	}
	// Fixed seed keeps repeated runs identical
	rnd := rand.New(rand.NewSource(1))
	norm = make([][3]float64, len(unique))
	for u, i := range unique {
		for r := 0; r < dim; r++ {
			norm[u][r] = (points[i][r]-lo[r])/scale + joggleScale*(rnd.Float64()-0.5)
		}
	}
	return
}

type bowyerWatson struct {
	dim     int
	nPoints int
	pts     [][3]float64 // Unique points followed by the super simplex vertices
	verts   [][4]int
	nbrs    [][4]int
	alive   []bool
	orient  []float64
	mark    []int
	stamp   int
}

func newBowyerWatson(dim int, pts [][3]float64) (bw *bowyerWatson) {
	bw = &bowyerWatson{
		dim:     dim,
		nPoints: len(pts),
		pts:     pts,
	}
	var super [4]int
	for k := 0; k <= dim; k++ {
		var p [3]float64
		for r := 0; r < dim; r++ {
			p[r] = -superScale
			if k == r+1 {
				p[r] = 3 * superScale
			}
		}
		super[k] = len(bw.pts)
		bw.pts = append(bw.pts, p)
	}
	bw.addSimplex(super, [4]int{-1, -1, -1, -1})
	return
}

func (bw *bowyerWatson) addSimplex(v, n [4]int) (s int) {
	s = len(bw.verts)
	bw.verts = append(bw.verts, v)
	bw.nbrs = append(bw.nbrs, n)
	bw.alive = append(bw.alive, true)
	bw.mark = append(bw.mark, 0)
	bw.orient = append(bw.orient, bw.orientation(v))
	return
}

func (bw *bowyerWatson) orientation(v [4]int) float64 {
	a, b, c := bw.pts[v[0]], bw.pts[v[1]], bw.pts[v[2]]
	if bw.dim == 2 {
		return geometry2D.Orient2D(a[0], a[1], b[0], b[1], c[0], c[1])
	}
	return orient3D(a, b, c, bw.pts[v[3]])
}

func (bw *bowyerWatson) inSphere(s, p int) bool {
	var (
		v = bw.verts[s]
		q = bw.pts[p]
	)
	a, b, c := bw.pts[v[0]], bw.pts[v[1]], bw.pts[v[2]]
	if bw.dim == 2 {
		return geometry2D.InCircle(a[0], a[1], b[0], b[1], c[0], c[1], q[0], q[1])
	}
	return inSphere3D(a, b, c, bw.pts[v[3]], q)
}

// visible reports whether replacing vertex j of s by p keeps the orientation
// of s, i.e. whether p sees the face opposite j from the inside.
func (bw *bowyerWatson) visible(s, j, p int) bool {
	v := bw.verts[s]
	v[j] = p
	o := bw.orientation(v)
	return o != 0 && math.Signbit(o) == math.Signbit(bw.orient[s])
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func orient3D(a, b, c, d [3]float64) float64 {
	var m [3][3]float64
	for r := 0; r < 3; r++ {
		m[0][r] = b[r] - a[r]
		m[1][r] = c[r] - a[r]
		m[2][r] = d[r] - a[r]
	}
	return det3(m)
}

// inSphere3D reports whether e lies strictly inside the circumsphere of
// a-b-c-d, in either orientation.
func inSphere3D(a, b, c, d, e [3]float64) bool {
	var (
		rows [4][4]float64
		det  float64
	)
	for i, p := range [4][3]float64{a, b, c, d} {
		for r := 0; r < 3; r++ {
			rows[i][r] = p[r] - e[r]
			rows[i][3] += rows[i][r] * rows[i][r]
		}
	}
	sign := 1.
	for col := 0; col < 4; col++ {
		var minor [3][3]float64
		for i := 1; i < 4; i++ {
			var k int
			for jj := 0; jj < 4; jj++ {
				if jj == col {
					continue
				}
				minor[i-1][k] = rows[i][jj]
				k++
			}
		}
		det += sign * rows[0][col] * det3(minor)
		sign = -sign
	}
	if orient3D(a, b, c, d) > 0 {
		return det < 0
	}
	return det > 0
}

type faceRef struct {
	s, slot int
}

func (bw *bowyerWatson) insert(p int) (err error) {
	var (
		dim  = bw.dim
		seed = -1
	)
	// Recently created simplices are the most likely to contain new points
	for s := len(bw.verts) - 1; s >= 0; s-- {
		if bw.alive[s] && bw.inSphere(s, p) {
			seed = s
			break
		}
	}
	if seed == -1 {
		return fmt.Errorf("point %d is outside every circumsphere", p)
	}
	bw.stamp++
	bw.mark[seed] = bw.stamp
	cavity := []int{seed}
	for n := 0; n < len(cavity); n++ {
		s := cavity[n]
		for j := 0; j <= dim; j++ {
			nb := bw.nbrs[s][j]
			if nb >= 0 && bw.mark[nb] != bw.stamp && bw.inSphere(nb, p) {
				bw.mark[nb] = bw.stamp
				cavity = append(cavity, nb)
			}
		}
	}
	// Grow the cavity until every boundary face is visible from p
	for grown := true; grown; {
		grown = false
		for n := 0; n < len(cavity); n++ {
			s := cavity[n]
			for j := 0; j <= dim; j++ {
				nb := bw.nbrs[s][j]
				if nb < 0 || bw.mark[nb] == bw.stamp || bw.visible(s, j, p) {
					continue
				}
				bw.mark[nb] = bw.stamp
				cavity = append(cavity, nb)
				grown = true
			}
		}
	}
	var created []int
	for _, s := range cavity {
		for j := 0; j <= dim; j++ {
			nb := bw.nbrs[s][j]
			if nb >= 0 && bw.mark[nb] == bw.stamp {
				continue
			}
			v := bw.verts[s]
			v[j] = p
			n := [4]int{-1, -1, -1, -1}
			n[j] = nb
			ns := bw.addSimplex(v, n)
			if nb >= 0 {
				for k := 0; k <= dim; k++ {
					if bw.nbrs[nb][k] == s {
						bw.nbrs[nb][k] = ns
					}
				}
			}
			created = append(created, ns)
		}
	}
	open := make(map[[3]int]faceRef)
	for _, ns := range created {
		for k := 0; k <= dim; k++ {
			if bw.verts[ns][k] == p {
				continue
			}
			key := bw.faceKey(ns, k)
			if other, ok := open[key]; ok {
				bw.nbrs[ns][k] = other.s
				bw.nbrs[other.s][other.slot] = ns
				delete(open, key)
			} else {
				open[key] = faceRef{ns, k}
			}
		}
	}
	for _, s := range cavity {
		bw.alive[s] = false
	}
	return
}

// faceKey is the sorted vertex list of the face opposite slot k, padded with -1
func (bw *bowyerWatson) faceKey(s, k int) (key [3]int) {
	key = [3]int{-1, -1, -1}
	var n int
	for j := 0; j <= bw.dim; j++ {
		if j != k {
			key[n] = bw.verts[s][j]
			n++
		}
	}
	sort.Ints(key[:n])
	return
}

func (bw *bowyerWatson) export(tri *Triangulation, unique []int) {
	var (
		dim   = bw.dim
		newID = make([]int, len(bw.verts))
	)
	for s := range bw.verts {
		newID[s] = -1
		if !bw.alive[s] {
			continue
		}
		keep := true
		for j := 0; j <= dim; j++ {
			if bw.verts[s][j] >= bw.nPoints {
				keep = false
			}
		}
		if !keep {
			continue
		}
		newID[s] = len(tri.Simplices)
		v := make([]int, dim+1)
		for j := 0; j <= dim; j++ {
			v[j] = unique[bw.verts[s][j]]
		}
		tri.Simplices = append(tri.Simplices, v)
	}
	tri.Neighbors = make([][]int, len(tri.Simplices))
	tri.transforms = make([]*affine, len(tri.Simplices))
	for s := range bw.verts {
		ns := newID[s]
		if ns == -1 {
			continue
		}
		tri.Neighbors[ns] = make([]int, dim+1)
		for j := 0; j <= dim; j++ {
			tri.Neighbors[ns][j] = -1
			if nb := bw.nbrs[s][j]; nb >= 0 {
				tri.Neighbors[ns][j] = newID[nb]
			}
		}
		tri.transforms[ns] = tri.newAffine(tri.Simplices[ns])
	}
}

// newAffine returns nil for simplices that are flat in unscaled coordinates
func (tri *Triangulation) newAffine(v []int) (af *affine) {
	var (
		dim    = tri.Dim
		origin = tri.Points[v[dim]]
		T      = mat.NewDense(dim, dim, nil)
		maxLen float64
	)
	for k := 0; k < dim; k++ {
		for r := 0; r < dim; r++ {
			T.Set(r, k, tri.Points[v[k]][r]-origin[r])
		}
	}
	for a := 0; a <= dim; a++ {
		for b := a + 1; b <= dim; b++ {
			var d2 float64
			for r := 0; r < dim; r++ {
				d := tri.Points[v[a]][r] - tri.Points[v[b]][r]
				d2 += d * d
			}
			maxLen = math.Max(maxLen, math.Sqrt(d2))
		}
	}
	if maxLen == 0 || math.Abs(mat.Det(T)) <= flatTol*math.Pow(maxLen, float64(dim)) {
		return nil
	}
	af = &affine{
		Tinv:   mat.NewDense(dim, dim, nil),
		origin: origin,
		lo:     make([]float64, dim),
		hi:     make([]float64, dim),
	}
	if err := af.Tinv.Inverse(T); !usableSolve(err) {
		return nil
	}
	for r := 0; r < dim; r++ {
		af.lo[r], af.hi[r] = math.Inf(1), math.Inf(-1)
		for _, vi := range v {
			af.lo[r] = math.Min(af.lo[r], tri.Points[vi][r])
			af.hi[r] = math.Max(af.hi[r], tri.Points[vi][r])
		}
	}
	return
}

// usableSolve accepts results flagged as ill conditioned but not singular
func usableSolve(err error) bool {
	if err == nil {
		return true
	}
	var cond mat.Condition
	return errors.As(err, &cond) && !math.IsInf(float64(cond), 1)
}

// IsDegenerate reports whether simplex s is excluded from point location.
func (tri *Triangulation) IsDegenerate(s int) bool { return tri.transforms[s] == nil }

// Barycentric returns the coordinates of q relative to the vertices of
// simplex s, or nil when s is degenerate. The last coordinate is one minus
// the sum of the others.
func (tri *Triangulation) Barycentric(s int, q []float64) (lambda []float64) {
	af := tri.transforms[s]
	if af == nil {
		return nil
	}
	var (
		dim = tri.Dim
		sum float64
	)
	lambda = make([]float64, dim+1)
	for k := 0; k < dim; k++ {
		for r := 0; r < dim; r++ {
			lambda[k] += af.Tinv.At(k, r) * (q[r] - af.origin[r])
		}
		sum += lambda[k]
	}
	lambda[dim] = 1 - sum
	return
}

// FindSimplex returns the first non degenerate simplex containing q, or -1.
func (tri *Triangulation) FindSimplex(q []float64) (s int) {
	s, _ = tri.Locate(q)
	return
}

// Locate is FindSimplex that also returns the barycentric coordinates.
func (tri *Triangulation) Locate(q []float64) (s int, lambda []float64) {
	for s = range tri.Simplices {
		af := tri.transforms[s]
		if af == nil || !af.contains(q, tri.boxTol) {
			continue
		}
		lambda = tri.Barycentric(s, q)
		inside := true
		for _, l := range lambda {
			if l < -insideTol {
				inside = false
				break
			}
		}
		if inside {
			return
		}
	}
	return -1, nil
}

func (af *affine) contains(q []float64, tol float64) bool {
	for r := range af.lo {
		if q[r] < af.lo[r]-tol || q[r] > af.hi[r]+tol {
			return false
		}
	}
	return true
}

// VertexNeighbors lists, for every input point, the points sharing an edge
// with it in ascending order. Duplicated points have no entry of their own.
func (tri *Triangulation) VertexNeighbors() (nbrs [][]int) {
	sets := make([]map[int]struct{}, len(tri.Points))
	for _, v := range tri.Simplices {
		for _, a := range v {
			for _, b := range v {
				if a == b {
					continue
				}
				if sets[a] == nil {
					sets[a] = make(map[int]struct{})
				}
				sets[a][b] = struct{}{}
			}
		}
	}
	nbrs = make([][]int, len(tri.Points))
	for i, set := range sets {
		for j := range set {
			nbrs[i] = append(nbrs[i], j)
		}
		sort.Ints(nbrs[i])
	}
	return
}
