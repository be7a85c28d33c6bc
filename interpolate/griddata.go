package interpolate

import (
	"fmt"
	"strings"
)

type Method uint8

const (
	Linear Method = iota
	Cubic
)

func (m Method) String() string {
	switch m {
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

func ParseMethod(label string) (m Method, err error) {
	switch strings.ToLower(label) {
	case "linear":
		return Linear, nil
	case "cubic":
		return Cubic, nil
	}
	return 0, fmt.Errorf("unknown interpolation method %q, expected linear or cubic", label)
}

// Griddata reconstructs each field of a scattered cloud at the query points.
// Queries outside the hull of the source cloud receive fill.
func Griddata(source [][]float64, fields [][]float64, query [][]float64, method Method, fill float64) (out [][]float64, err error) {
	for n, f := range fields {
		if len(f) != len(source) {
			return nil, fmt.Errorf("field %d has %d values for %d points", n, len(f), len(source))
		}
	}
	var tri *Triangulation
	if tri, err = NewDelaunay(source); err != nil {
		return
	}
	var w *Weights
	if w, err = NewWeights(tri, query); err != nil {
		return
	}
	out = make([][]float64, len(fields))
	for n, f := range fields {
		if out[n], err = Evaluate(f, w, method, fill); err != nil {
			return nil, err
		}
	}
	return
}

// PlaneLine reconstructs the fields of a 2-D (x, y) cloud on the vertical
// line x = x0 at the ordinates ygrid.
func PlaneLine(source [][]float64, fields [][]float64, x0 float64, ygrid []float64, method Method, fill float64) (out [][]float64, err error) {
	query := make([][]float64, len(ygrid))
	for j, y := range ygrid {
		query[j] = []float64{x0, y}
	}
	return Griddata(source, fields, query, method, fill)
}
