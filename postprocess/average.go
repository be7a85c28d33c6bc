package postprocess

import (
	"fmt"

	"github.com/notargets/hillpp/table"
)

// RunningMean accumulates tables of identical layout. The leading nKeys
// columns (coordinates) are taken from the first table; the rest are summed
// and divided by the number of tables once, in Mean.
//
// With a positive legacyN every term is divided by legacyN as it is added,
// reproducing outputs of the online averaging scripts.
type RunningMean struct {
	nKeys   int
	legacyN int
	sum     *table.Frame
	count   int
}

func NewRunningMean(nKeys, legacyN int) *RunningMean {
	return &RunningMean{nKeys: nKeys, legacyN: legacyN}
}

func (rm *RunningMean) Add(f *table.Frame) error {
	if f.NCols() < rm.nKeys {
		return fmt.Errorf("table with %d columns has fewer than %d key columns", f.NCols(), rm.nKeys)
	}
	if rm.sum == nil {
		rm.sum = table.NewFrame(f.Names...)
		rm.sum.Data = make([]float64, len(f.Data))
		nc := f.NCols()
		for i := 0; i < f.Len(); i++ {
			copy(rm.sum.Data[i*nc:i*nc+rm.nKeys], f.Row(i)[:rm.nKeys])
		}
	} else if f.Len() != rm.sum.Len() || f.NCols() != rm.sum.NCols() {
		return fmt.Errorf("table of %d x %d added to a running mean of %d x %d",
			f.Len(), f.NCols(), rm.sum.Len(), rm.sum.NCols())
	}
	nc := f.NCols()
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		for j := rm.nKeys; j < nc; j++ {
			if rm.legacyN > 0 {
				rm.sum.Data[i*nc+j] += row[j] / float64(rm.legacyN)
			} else {
				rm.sum.Data[i*nc+j] += row[j]
			}
		}
	}
	rm.count++
	return nil
}

func (rm *RunningMean) Count() int { return rm.count }

// Mean returns the finished average, nil if nothing was added.
func (rm *RunningMean) Mean() (f *table.Frame) {
	if rm.sum == nil {
		return nil
	}
	f = rm.sum.Copy()
	if rm.legacyN > 0 {
		return
	}
	nc := f.NCols()
	for i := 0; i < f.Len(); i++ {
		for j := rm.nKeys; j < nc; j++ {
			f.Data[i*nc+j] /= float64(rm.count)
		}
	}
	return
}
