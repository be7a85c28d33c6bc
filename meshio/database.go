package meshio

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"
)

// Part is a named physical group, Nodes are database node indices in
// ascending order.
type Part struct {
	Name  string
	Dim   int
	Tag   int
	Nodes []int
}

type fieldSeries struct {
	nComp  int
	bySlot map[int][]float64 // Step slot -> dense nNodes*nComp, NaN where absent
}

// Database is the parsed mesh shared read-only by all ranks of a process.
type Database struct {
	NodeTags      []int
	Coords        [][3]float64
	Parts         map[string]*Part
	NodePartition []int // Lowest owning partition of the node's elements, 0 if untagged
	NumPartitions int
	Times         []float64
	index         map[int]int
	fields        map[string]*fieldSeries
	fieldOrder    []string
}

// NewDatabase indexes mesh content for part, ownership and field lookups.
func NewDatabase(md *MeshData) (db *Database, err error) {
	nNodes := len(md.Nodes)
	db = &Database{
		NodeTags:      md.NodeTags,
		Coords:        md.Nodes,
		Parts:         make(map[string]*Part),
		NodePartition: make([]int, nNodes),
		index:         make(map[int]int, nNodes),
		fields:        make(map[string]*fieldSeries),
	}
	for i, tag := range md.NodeTags {
		if _, dup := db.index[tag]; dup {
			return nil, fmt.Errorf("duplicate node tag %d", tag)
		}
		db.index[tag] = i
	}
	names := make(map[int]PhysicalName)
	for _, pn := range md.PhysicalNames {
		names[pn.Tag] = pn
	}
	var (
		partNodes = make(map[int]map[int]bool)
		partDim   = make(map[int]int)
		seenParts = make(map[int]bool)
	)
	for _, el := range md.Elements {
		var owner int
		if len(el.Partitions) > 0 {
			owner = el.Partitions[0]
			if owner < 0 {
				owner = -owner
			}
			seenParts[owner] = true
		}
		if _, ok := partNodes[el.Physical]; !ok {
			partNodes[el.Physical] = make(map[int]bool)
		}
		if d := gmshElementDim22[el.Type]; d > partDim[el.Physical] {
			partDim[el.Physical] = d
		}
		for _, tag := range el.Nodes {
			n, ok := db.index[tag]
			if !ok {
				return nil, fmt.Errorf("element %d references unknown node %d", el.Tag, tag)
			}
			partNodes[el.Physical][n] = true
			if owner > 0 && (db.NodePartition[n] == 0 || owner < db.NodePartition[n]) {
				db.NodePartition[n] = owner
			}
		}
	}
	db.NumPartitions = len(seenParts)
	for tag, nodes := range partNodes {
		p := &Part{Tag: tag, Dim: partDim[tag]}
		if pn, ok := names[tag]; ok {
			p.Name, p.Dim = pn.Name, pn.Dim
		} else {
			p.Name = fmt.Sprintf("physical_%d", tag)
		}
		for n := range nodes {
			p.Nodes = append(p.Nodes, n)
		}
		sort.Ints(p.Nodes)
		db.Parts[p.Name] = p
	}
	// Distinct times ordered ascending define the step slots
	for _, nd := range md.NodeData {
		db.Times = append(db.Times, nd.Time)
	}
	sort.Float64s(db.Times)
	db.Times = uniqueSorted(db.Times)
	for _, nd := range md.NodeData {
		if nd.Name == "" || nd.NComp < 1 {
			return nil, fmt.Errorf("invalid NodeData block %q with %d components", nd.Name, nd.NComp)
		}
		fs, ok := db.fields[nd.Name]
		if !ok {
			fs = &fieldSeries{nComp: nd.NComp, bySlot: make(map[int][]float64)}
			db.fields[nd.Name] = fs
			db.fieldOrder = append(db.fieldOrder, nd.Name)
		} else if fs.nComp != nd.NComp {
			return nil, fmt.Errorf("field %s has %d components at t=%g, %d before",
				nd.Name, nd.NComp, nd.Time, fs.nComp)
		}
		slot := sort.SearchFloat64s(db.Times, nd.Time)
		dense, ok := fs.bySlot[slot]
		if !ok {
			dense = make([]float64, nNodes*nd.NComp)
			for i := range dense {
				dense[i] = math.NaN()
			}
			fs.bySlot[slot] = dense
		}
		for i, tag := range nd.NodeTags {
			n, ok := db.index[tag]
			if !ok {
				return nil, fmt.Errorf("field %s references unknown node %d", nd.Name, tag)
			}
			copy(dense[n*nd.NComp:(n+1)*nd.NComp], nd.Values[i])
		}
	}
	return
}

func uniqueSorted(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	out := x[:1]
	for _, v := range x[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// FieldNames lists fields in file order
func (db *Database) FieldNames() []string { return append([]string(nil), db.fieldOrder...) }

func (db *Database) NumNodes() int { return len(db.Coords) }

type cacheKey struct {
	path    string
	size    int64
	modTime time.Time
}

type cacheEntry struct {
	once sync.Once
	db   *Database
	err  error
}

var databases = struct {
	sync.Mutex
	entries map[cacheKey]*cacheEntry
}{entries: make(map[cacheKey]*cacheEntry)}

// LoadDatabase parses path once per process; ranks asking for the same
// unchanged file share the result.
func LoadDatabase(path string) (*Database, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: path, size: fi.Size(), modTime: fi.ModTime()}
	databases.Lock()
	ent, ok := databases.entries[key]
	if !ok {
		ent = &cacheEntry{}
		databases.entries[key] = ent
	}
	databases.Unlock()
	ent.once.Do(func() {
		var (
			file *os.File
			md   *MeshData
		)
		if file, ent.err = os.Open(path); ent.err != nil {
			return
		}
		defer file.Close()
		if md, ent.err = ReadGmsh22(file); ent.err != nil {
			ent.err = fmt.Errorf("reading %s: %w", path, ent.err)
			return
		}
		ent.db, ent.err = NewDatabase(md)
	})
	return ent.db, ent.err
}
