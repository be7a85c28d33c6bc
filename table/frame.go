package table

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Frame is a table of named float columns stored row major.
type Frame struct {
	Names []string
	Data  []float64
}

func NewFrame(names ...string) *Frame {
	return &Frame{Names: append([]string(nil), names...)}
}

// FromRows wraps row major data, which must fill whole rows.
func FromRows(names []string, data []float64) (f *Frame, err error) {
	if len(names) == 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("%d values without columns", len(data))
		}
		return NewFrame(), nil
	}
	if len(data)%len(names) != 0 {
		return nil, fmt.Errorf("%d values do not fill rows of %d columns", len(data), len(names))
	}
	f = NewFrame(names...)
	f.Data = append(f.Data, data...)
	return
}

func (f *Frame) NCols() int { return len(f.Names) }

func (f *Frame) Len() int {
	if len(f.Names) == 0 {
		return 0
	}
	return len(f.Data) / len(f.Names)
}

func (f *Frame) Row(i int) []float64 {
	nc := f.NCols()
	return f.Data[i*nc : (i+1)*nc]
}

func (f *Frame) At(i int, name string) float64 {
	return f.Row(i)[f.MustIndex(name)]
}

// Index returns the column position of name, or -1.
func (f *Frame) Index(name string) int {
	for j, n := range f.Names {
		if n == name {
			return j
		}
	}
	return -1
}

func (f *Frame) MustIndex(name string) (j int) {
	if j = f.Index(name); j == -1 {
		panic(fmt.Errorf("no column %q in %v", name, f.Names))
	}
	return
}

func (f *Frame) Has(name string) bool { return f.Index(name) != -1 }

func (f *Frame) Column(j int) (col []float64) {
	col = make([]float64, f.Len())
	for i := range col {
		col[i] = f.Data[i*f.NCols()+j]
	}
	return
}

// Col copies out the named column; unknown names are a programming error.
func (f *Frame) Col(name string) []float64 { return f.Column(f.MustIndex(name)) }

func (f *Frame) Append(row ...float64) {
	if len(row) != f.NCols() {
		panic(fmt.Errorf("row of %d values for %d columns", len(row), f.NCols()))
	}
	f.Data = append(f.Data, row...)
}

func (f *Frame) AppendFrame(o *Frame) error {
	if !sameNames(f.Names, o.Names) {
		return fmt.Errorf("columns %v do not match %v", o.Names, f.Names)
	}
	f.Data = append(f.Data, o.Data...)
	return nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *Frame) Copy() *Frame {
	return &Frame{
		Names: append([]string(nil), f.Names...),
		Data:  append([]float64(nil), f.Data...),
	}
}

// Filter keeps the rows for which keep is true.
func (f *Frame) Filter(keep func(row []float64) bool) (out *Frame) {
	out = NewFrame(f.Names...)
	for i := 0; i < f.Len(); i++ {
		if row := f.Row(i); keep(row) {
			out.Data = append(out.Data, row...)
		}
	}
	return
}

// Select returns the named columns in the given order.
func (f *Frame) Select(names ...string) (out *Frame, err error) {
	idx := make([]int, len(names))
	for k, name := range names {
		if idx[k] = f.Index(name); idx[k] == -1 {
			return nil, fmt.Errorf("no column %q in %v", name, f.Names)
		}
	}
	out = NewFrame(names...)
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		for _, j := range idx {
			out.Data = append(out.Data, row[j])
		}
	}
	return
}

func (f *Frame) keyIndices(keys []string) (idx []int, err error) {
	idx = make([]int, len(keys))
	for k, key := range keys {
		if idx[k] = f.Index(key); idx[k] == -1 {
			return nil, fmt.Errorf("no key column %q in %v", key, f.Names)
		}
	}
	return
}

// rowOrder returns the row indices stably sorted ascending by the key columns
func (f *Frame) rowOrder(idx []int) (order []int) {
	order = make([]int, f.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := f.Row(order[a]), f.Row(order[b])
		for _, j := range idx {
			if ra[j] != rb[j] {
				return ra[j] < rb[j]
			}
		}
		return false
	})
	return
}

// SortBy orders the rows ascending by the named columns, keeping the input
// order of ties.
func (f *Frame) SortBy(keys ...string) error {
	idx, err := f.keyIndices(keys)
	if err != nil {
		return err
	}
	data := make([]float64, 0, len(f.Data))
	for _, i := range f.rowOrder(idx) {
		data = append(data, f.Row(i)...)
	}
	f.Data = data
	return nil
}

// GroupMean averages every non-key column over the rows sharing the same key
// values. The result is sorted ascending by the keys.
func (f *Frame) GroupMean(keys ...string) (out *Frame, err error) {
	var idx []int
	if idx, err = f.keyIndices(keys); err != nil {
		return
	}
	var (
		nc    = f.NCols()
		order = f.rowOrder(idx)
		equal = func(a, b []float64) bool {
			for _, j := range idx {
				if a[j] != b[j] {
					return false
				}
			}
			return true
		}
	)
	isKey := make([]bool, nc)
	for _, j := range idx {
		isKey[j] = true
	}
	out = NewFrame(f.Names...)
	col := make([]float64, 0, len(order))
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && equal(f.Row(order[start]), f.Row(order[end])) {
			end++
		}
		first := f.Row(order[start])
		for j := 0; j < nc; j++ {
			if isKey[j] {
				out.Data = append(out.Data, first[j])
				continue
			}
			col = col[:0]
			for _, i := range order[start:end] {
				col = append(col, f.Row(i)[j])
			}
			out.Data = append(out.Data, stat.Mean(col, nil))
		}
		start = end
	}
	return
}
