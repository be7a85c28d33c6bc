package postprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/hillpp/geometry2D"
	"github.com/notargets/hillpp/interpolate"
	"github.com/notargets/hillpp/table"
)

// Plane holds the statistics of one analysis plane on its y grid. The mean
// fields always start with u, v, w.
type Plane struct {
	X                float64
	Y                []float64
	Names            []string
	Mean             [][]float64
	upup, vpvp, upvp []float64
	count            []int
	query            [][]float64
}

func NewPlane(x float64) *Plane { return &Plane{X: x} }

// InSlab reports whether x lies within halfWidth of the plane
func (p *Plane) InSlab(x, halfWidth float64) bool { return math.Abs(x-p.X) < halfWidth }

// SetMean reconstructs the named mean fields of the gathered slab samples on
// a regular grid from the hill surface to the highest sample.
func (p *Plane) SetMean(slab *table.Frame, names []string, resolution int, method interpolate.Method) (err error) {
	if slab.Len() == 0 {
		return fmt.Errorf("plane x=%g has no samples", p.X)
	}
	var dedup *table.Frame
	if dedup, err = slab.GroupMean("x", "y"); err != nil {
		return
	}
	var (
		y      = dedup.Col("y")
		ymax   = floats.Max(y)
		h0     = geometry2D.HillElevation([]float64{p.X})[0]
		source = planeSource(dedup)
		fields = make([][]float64, len(names))
	)
	if ymax <= h0 {
		return fmt.Errorf("plane x=%g: samples end at y=%g, below the hill at %g", p.X, ymax, h0)
	}
	for n, name := range names {
		if !dedup.Has(name) {
			return fmt.Errorf("plane x=%g: no column %s", p.X, name)
		}
		fields[n] = dedup.Col(name)
	}
	p.Y = floats.Span(make([]float64, resolution), h0, ymax)
	p.Y[resolution-1] = ymax
	p.query = make([][]float64, resolution)
	for j, yj := range p.Y {
		p.query[j] = []float64{p.X, yj}
	}
	if p.Mean, err = interpolate.PlaneLine(source, fields, p.X, p.Y, method, 0); err != nil {
		return fmt.Errorf("plane x=%g: %w", p.X, err)
	}
	p.Names = append([]string(nil), names...)
	p.upup = make([]float64, resolution)
	p.vpvp = make([]float64, resolution)
	p.upvp = make([]float64, resolution)
	p.count = make([]int, resolution)
	return
}

func planeSource(f *table.Frame) (source [][]float64) {
	var (
		ix, iy = f.MustIndex("x"), f.MustIndex("y")
	)
	source = make([][]float64, f.Len())
	for i := range source {
		row := f.Row(i)
		source[i] = []float64{row[ix], row[iy]}
	}
	return
}

// AddFluctuations accumulates the second moments of one spanwise station.
// Stations whose samples do not span a 2-D hull are skipped and reported
// with false.
func (p *Plane) AddFluctuations(station *table.Frame, key string, cache *interpolate.WeightsCache,
	method interpolate.Method) (used bool, err error) {
	if p.Mean == nil {
		return false, fmt.Errorf("plane x=%g: fluctuations before the mean", p.X)
	}
	var dedup *table.Frame
	if dedup, err = station.GroupMean("x", "y"); err != nil {
		return
	}
	var w *interpolate.Weights
	w, err = cache.Get(key, planeSource(dedup), p.query)
	if errors.Is(err, interpolate.ErrDegenerateInput) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("plane x=%g: %w", p.X, err)
	}
	var u, v []float64
	if u, err = interpolate.Evaluate(dedup.Col("u"), w, method, 0); err != nil {
		return
	}
	if v, err = interpolate.Evaluate(dedup.Col("v"), w, method, 0); err != nil {
		return
	}
	for j := range p.Y {
		if !w.Inside(j) {
			continue
		}
		up, vp := u[j]-p.Mean[0][j], v[j]-p.Mean[1][j]
		p.upup[j] += up * up
		p.vpvp[j] += vp * vp
		p.upvp[j] += up * vp
		p.count[j]++
	}
	return true, nil
}

// Frame divides the second moments by their contribution counts and returns
// the plane table.
func (p *Plane) Frame() (f *table.Frame) {
	names := append([]string{"x", "y"}, p.Names...)
	f = table.NewFrame(append(names, "upup", "vpvp", "upvp")...)
	row := make([]float64, 0, f.NCols())
	for j, y := range p.Y {
		row = append(row[:0], p.X, y)
		for n := range p.Names {
			row = append(row, p.Mean[n][j])
		}
		var uu, vv, uv float64
		if c := float64(p.count[j]); c > 0 {
			uu, vv, uv = p.upup[j]/c, p.vpvp[j]/c, p.upvp[j]/c
		}
		f.Append(append(row, uu, vv, uv)...)
	}
	return
}

// Counts is the number of contributions at every grid point
func (p *Plane) Counts() []int { return append([]int(nil), p.count...) }
