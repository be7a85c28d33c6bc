package meshio

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/hillpp/utils"
)

var (
	ErrPartNotFound    = errors.New("part not found")
	ErrFieldNotDefined = errors.New("field not defined")
	ErrFieldNotLoaded  = errors.New("field has no data at the loaded time")
)

// BucketCapacity is the maximum node count of a bucket
const BucketCapacity = 512

// Bucket is a contiguous group of locally owned nodes of one part.
type Bucket struct {
	ID    int
	Nodes []int
}

func (b Bucket) Len() int { return len(b.Nodes) }

// Field is a nodal quantity as seen from one rank.
type Field interface {
	Name() string
	NComp() int
	IsDefined() bool
	// BucketView returns the bucket's values row major, NComp per node.
	BucketView(b Bucket) ([]float64, error)
}

// Store is the mesh and field collaborator used by the extraction tools.
// One Store serves one rank.
type Store interface {
	ReadMetaData(path string, autoDecomp bool) error
	PopulateBulkData() error
	TimeSteps() []float64
	ReadDefinedInputFields(t float64) error
	Part(name string) (*Part, error)
	Buckets(part *Part) []Bucket
	Field(name string) Field
	Coordinates() Field
}

// GmshStore is the Store backed by a Gmsh 2.2 file with $NodeData.
type GmshStore struct {
	Rank, Size int
	autoDecomp bool
	db         *Database
	owned      []bool
	populated  bool
	slot       int
}

func NewGmshStore(rank, size int) *GmshStore {
	if rank < 0 || rank >= size {
		panic(fmt.Errorf("rank %d outside of %d ranks", rank, size))
	}
	return &GmshStore{Rank: rank, Size: size, slot: -1}
}

func (gs *GmshStore) ReadMetaData(path string, autoDecomp bool) (err error) {
	if gs.db, err = LoadDatabase(path); err != nil {
		return
	}
	gs.autoDecomp = autoDecomp
	if autoDecomp || gs.Size == 1 {
		return
	}
	if gs.db.NumPartitions != gs.Size {
		return fmt.Errorf("%s has %d partitions but the run has %d ranks, rerun with --auto_decomp",
			path, gs.db.NumPartitions, gs.Size)
	}
	return
}

// PopulateBulkData decides the owning rank of every node.
func (gs *GmshStore) PopulateBulkData() error {
	if gs.db == nil {
		return fmt.Errorf("PopulateBulkData called before ReadMetaData")
	}
	nNodes := gs.db.NumNodes()
	gs.owned = make([]bool, nNodes)
	switch {
	case gs.Size == 1:
		for i := range gs.owned {
			gs.owned[i] = true
		}
	case gs.autoDecomp:
		pm := utils.NewPartitionMap(gs.Size, nNodes)
		for i := range gs.owned {
			gs.owned[i] = pm.Owner(i) == gs.Rank
		}
	default:
		for i, p := range gs.db.NodePartition {
			// Gmsh partitions count from 1, untagged nodes go to the root
			owner := p - 1
			if p == 0 {
				owner = 0
			}
			gs.owned[i] = owner == gs.Rank
		}
	}
	gs.populated = true
	return nil
}

func (gs *GmshStore) TimeSteps() []float64 {
	if gs.db == nil {
		return nil
	}
	return append([]float64(nil), gs.db.Times...)
}

// ReadDefinedInputFields makes the step at time t current for every field.
func (gs *GmshStore) ReadDefinedInputFields(t float64) error {
	if gs.db == nil {
		return fmt.Errorf("ReadDefinedInputFields called before ReadMetaData")
	}
	times := gs.db.Times
	k := sort.SearchFloat64s(times, t)
	for _, c := range []int{k - 1, k} {
		if c >= 0 && c < len(times) && utils.RelEqual(times[c], t, 1.e-9) {
			gs.slot = c
			return nil
		}
	}
	return fmt.Errorf("no stored step at t=%g", t)
}

// CurrentTime is the time of the loaded step, NaN before the first load.
func (gs *GmshStore) CurrentTime() float64 {
	if gs.slot < 0 {
		return math.NaN()
	}
	return gs.db.Times[gs.slot]
}

func (gs *GmshStore) Part(name string) (*Part, error) {
	if gs.db == nil {
		return nil, fmt.Errorf("part %s: %w", name, ErrPartNotFound)
	}
	p, ok := gs.db.Parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s: %w", name, ErrPartNotFound)
	}
	return p, nil
}

// Buckets splits the locally owned nodes of part into BucketCapacity sized
// groups in ascending node order.
func (gs *GmshStore) Buckets(part *Part) (buckets []Bucket) {
	if !gs.populated || part == nil {
		return
	}
	var cur []int
	for _, n := range part.Nodes {
		if !gs.owned[n] {
			continue
		}
		cur = append(cur, n)
		if len(cur) == BucketCapacity {
			buckets = append(buckets, Bucket{ID: len(buckets), Nodes: cur})
			cur = nil
		}
	}
	if len(cur) > 0 {
		buckets = append(buckets, Bucket{ID: len(buckets), Nodes: cur})
	}
	return
}

func (gs *GmshStore) Field(name string) Field {
	fv := &nodalField{store: gs, name: name}
	if gs.db != nil {
		fv.series = gs.db.fields[name]
	}
	return fv
}

func (gs *GmshStore) Coordinates() Field { return &coordinateField{store: gs} }

type nodalField struct {
	store  *GmshStore
	name   string
	series *fieldSeries
}

func (f *nodalField) Name() string { return f.name }

func (f *nodalField) NComp() int {
	if f.series == nil {
		return 0
	}
	return f.series.nComp
}

func (f *nodalField) IsDefined() bool { return f.series != nil }

func (f *nodalField) BucketView(b Bucket) (view []float64, err error) {
	if f.series == nil {
		return nil, fmt.Errorf("field %s: %w", f.name, ErrFieldNotDefined)
	}
	dense, ok := f.series.bySlot[f.store.slot]
	if !ok {
		return nil, fmt.Errorf("field %s at t=%g: %w", f.name, f.store.CurrentTime(), ErrFieldNotLoaded)
	}
	nc := f.series.nComp
	view = make([]float64, len(b.Nodes)*nc)
	for i, n := range b.Nodes {
		copy(view[i*nc:(i+1)*nc], dense[n*nc:(n+1)*nc])
	}
	if utils.IsNan(view) {
		return nil, fmt.Errorf("field %s at t=%g has nodes without values in bucket %d: %w",
			f.name, f.store.CurrentTime(), b.ID, ErrFieldNotLoaded)
	}
	return
}

type coordinateField struct {
	store *GmshStore
}

func (f *coordinateField) Name() string { return "coordinates" }

func (f *coordinateField) NComp() int { return 3 }

func (f *coordinateField) IsDefined() bool { return f.store.db != nil }

func (f *coordinateField) BucketView(b Bucket) (view []float64, err error) {
	if f.store.db == nil {
		return nil, fmt.Errorf("coordinates: %w", ErrFieldNotDefined)
	}
	view = make([]float64, 3*len(b.Nodes))
	for i, n := range b.Nodes {
		copy(view[3*i:3*i+3], f.store.db.Coords[n][:])
	}
	return
}
