package postprocess

import (
	"fmt"

	"github.com/notargets/hillpp/meshio"
	"github.com/notargets/hillpp/table"
)

// FieldColumns names the table columns a field's components are written to.
type FieldColumns struct {
	Field   string
	Columns []string
}

func Scalar(field, column string) FieldColumns {
	return FieldColumns{Field: field, Columns: []string{column}}
}

func Vector(field string, columns ...string) FieldColumns {
	return FieldColumns{Field: field, Columns: columns}
}

// CoordinateColumns lead every extracted table
var CoordinateColumns = []string{"x", "y", "z"}

// ExtractRegionFields tabulates the locally owned nodes of part at the loaded
// time step, one row of coordinates followed by the field columns per node.
func ExtractRegionFields(store meshio.Store, part string, fields []FieldColumns) (f *table.Frame, err error) {
	var mp *meshio.Part
	if mp, err = store.Part(part); err != nil {
		return
	}
	names := append([]string(nil), CoordinateColumns...)
	views := make([]meshio.Field, len(fields))
	for n, fc := range fields {
		fld := store.Field(fc.Field)
		if !fld.IsDefined() {
			return nil, fmt.Errorf("part %s: field %s: %w", part, fc.Field, meshio.ErrFieldNotDefined)
		}
		if fld.NComp() != len(fc.Columns) {
			return nil, fmt.Errorf("field %s has %d components, %d columns requested",
				fc.Field, fld.NComp(), len(fc.Columns))
		}
		views[n] = fld
		names = append(names, fc.Columns...)
	}
	f = table.NewFrame(names...)
	coords := store.Coordinates()
	for _, b := range store.Buckets(mp) {
		var xyz []float64
		if xyz, err = coords.BucketView(b); err != nil {
			return nil, err
		}
		vals := make([][]float64, len(views))
		for n, fld := range views {
			if vals[n], err = fld.BucketView(b); err != nil {
				return nil, fmt.Errorf("part %s: %w", part, err)
			}
		}
		row := make([]float64, len(names))
		for i := 0; i < b.Len(); i++ {
			row = append(row[:0], xyz[3*i:3*i+3]...)
			for n, fc := range fields {
				nc := len(fc.Columns)
				row = append(row, vals[n][i*nc:(i+1)*nc]...)
			}
			f.Append(row...)
		}
	}
	return
}
