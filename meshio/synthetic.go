package meshio

import (
	"fmt"
	"math"
	"os"

	"github.com/notargets/hillpp/geometry2D"
)

// Physical group tags of the synthetic case
const (
	FluidTag = iota + 1
	BottomWallTag
	InletTag
)

// SyntheticHill describes a structured periodic-hill channel with analytic
// fields. Amplitude scales the time dependent part of every field, zero gives
// a steady flow.
type SyntheticHill struct {
	NX, NY, NZ int
	Lx, Ly, Lz float64
	Partitions int
	Times      []float64
	Amplitude  float64
	Period     float64
}

func NewSyntheticHill() *SyntheticHill {
	sh := &SyntheticHill{
		NX: 90, NY: 10, NZ: 2,
		Lx: 9, Ly: 3.035, Lz: 4.5,
		Partitions: 1,
		Amplitude:  0.1,
		Period:     4,
	}
	for i := 0; i <= 20; i++ {
		sh.Times = append(sh.Times, float64(i))
	}
	return sh
}

func (sh *SyntheticHill) nodeTag(i, j, k int) int {
	return 1 + i*(sh.NY+1)*(sh.NZ+1) + j*(sh.NZ+1) + k
}

// partition of the streamwise cell column i, slabs along x
func (sh *SyntheticHill) partition(i int) int {
	return 1 + i*sh.Partitions/sh.NX
}

// Velocity is the analytic velocity at (x, y) and time t.
func (sh *SyntheticHill) Velocity(x, y, t float64) (u, v, w float64) {
	var (
		h   = geometry2D.HillElevation([]float64{x})[0]
		eta = (y - h) / (sh.Ly - h)
		ph  = 2 * math.Pi * t / sh.Period
	)
	u = eta * (1 + sh.Amplitude*math.Sin(ph))
	v = sh.Amplitude * eta * (1 - eta) * math.Cos(ph)
	return
}

func (sh *SyntheticHill) WallShear(x, t float64) float64 {
	return 1.e-3 * (1 + sh.Amplitude*math.Sin(2*math.Pi*t/sh.Period)) *
		(1 + 0.1*math.Cos(2*math.Pi*x/sh.Lx))
}

func (sh *SyntheticHill) Validate() error {
	switch {
	case sh.NX < 1 || sh.NY < 1 || sh.NZ < 1:
		return fmt.Errorf("synthetic hill needs at least one cell per direction, have %d x %d x %d",
			sh.NX, sh.NY, sh.NZ)
	case sh.Partitions < 1 || sh.Partitions > sh.NX:
		return fmt.Errorf("%d partitions for %d streamwise cells", sh.Partitions, sh.NX)
	case len(sh.Times) == 0:
		return fmt.Errorf("synthetic hill has no time steps")
	case sh.Period <= 0:
		return fmt.Errorf("period must be positive, have %g", sh.Period)
	case sh.Lx <= 0 || sh.Ly <= geometry2D.HillElevation([]float64{0})[0] || sh.Lz <= 0:
		return fmt.Errorf("invalid box %g x %g x %g", sh.Lx, sh.Ly, sh.Lz)
	}
	return nil
}

// MeshData builds the mesh with fluid hexahedra, bottom wall and inlet
// quadrilaterals and one $NodeData block per field and time.
func (sh *SyntheticHill) MeshData() (md *MeshData, err error) {
	if err = sh.Validate(); err != nil {
		return
	}
	md = &MeshData{
		FormatVersion: "2.2",
		PhysicalNames: []PhysicalName{
			{Dim: 3, Tag: FluidTag, Name: "fluid"},
			{Dim: 2, Tag: BottomWallTag, Name: "bottomwall"},
			{Dim: 2, Tag: InletTag, Name: "inlet"},
		},
	}
	xs := make([]float64, sh.NX+1)
	for i := range xs {
		xs[i] = sh.Lx * float64(i) / float64(sh.NX)
	}
	hs := geometry2D.HillElevation(xs)
	for i := 0; i <= sh.NX; i++ {
		for j := 0; j <= sh.NY; j++ {
			y := hs[i] + (sh.Ly-hs[i])*float64(j)/float64(sh.NY)
			for k := 0; k <= sh.NZ; k++ {
				md.NodeTags = append(md.NodeTags, sh.nodeTag(i, j, k))
				md.Nodes = append(md.Nodes, [3]float64{xs[i], y, sh.Lz * float64(k) / float64(sh.NZ)})
			}
		}
	}
	addElement := func(elType, physical, part int, nodes ...int) {
		md.Elements = append(md.Elements, Element{
			Tag:        len(md.Elements) + 1,
			Type:       elType,
			Physical:   physical,
			Elementary: physical,
			Partitions: []int{part},
			Nodes:      nodes,
		})
	}
	for i := 0; i < sh.NX; i++ {
		for j := 0; j < sh.NY; j++ {
			for k := 0; k < sh.NZ; k++ {
				addElement(5, FluidTag, sh.partition(i),
					sh.nodeTag(i, j, k), sh.nodeTag(i+1, j, k), sh.nodeTag(i+1, j+1, k), sh.nodeTag(i, j+1, k),
					sh.nodeTag(i, j, k+1), sh.nodeTag(i+1, j, k+1), sh.nodeTag(i+1, j+1, k+1), sh.nodeTag(i, j+1, k+1))
			}
		}
	}
	for i := 0; i < sh.NX; i++ {
		for k := 0; k < sh.NZ; k++ {
			addElement(3, BottomWallTag, sh.partition(i),
				sh.nodeTag(i, 0, k), sh.nodeTag(i+1, 0, k), sh.nodeTag(i+1, 0, k+1), sh.nodeTag(i, 0, k+1))
		}
	}
	for j := 0; j < sh.NY; j++ {
		for k := 0; k < sh.NZ; k++ {
			addElement(3, InletTag, sh.partition(0),
				sh.nodeTag(0, j, k), sh.nodeTag(0, j+1, k), sh.nodeTag(0, j+1, k+1), sh.nodeTag(0, j, k+1))
		}
	}
	for step, t := range sh.Times {
		md.NodeData = append(md.NodeData, sh.volumeFields(md, step, t)...)
		md.NodeData = append(md.NodeData, sh.wallFields(md, step, t)...)
	}
	return
}

func (sh *SyntheticHill) volumeFields(md *MeshData, step int, t float64) []NodeData {
	var (
		N        = len(md.Nodes)
		velocity = NodeData{Name: "velocity", Time: t, Step: step, NComp: 3}
		tke      = NodeData{Name: "turbulent_ke", Time: t, Step: step, NComp: 1}
		sdr      = NodeData{Name: "specific_dissipation_rate", Time: t, Step: step, NComp: 1}
		stress   = NodeData{Name: "sfs_stress", Time: t, Step: step, NComp: 6}
	)
	for _, nd := range []*NodeData{&velocity, &tke, &sdr, &stress} {
		nd.NodeTags = md.NodeTags
		nd.Values = make([][]float64, N)
	}
	for n, X := range md.Nodes {
		u, v, w := sh.Velocity(X[0], X[1], t)
		h := geometry2D.HillElevation([]float64{X[0]})[0]
		eta := (X[1] - h) / (sh.Ly - h)
		velocity.Values[n] = []float64{u, v, w}
		tke.Values[n] = []float64{0.01 + 0.5*sh.Amplitude*sh.Amplitude*eta*(1-eta)}
		sdr.Values[n] = []float64{1 + eta}
		stress.Values[n] = []float64{0.01 * eta, -0.005 * eta * (1 - eta), 0, 0.004 * eta, 0, 0.002}
	}
	return []NodeData{velocity, tke, sdr, stress}
}

func (sh *SyntheticHill) wallFields(md *MeshData, step int, t float64) []NodeData {
	var (
		tw  = NodeData{Name: "tau_wall", Time: t, Step: step, NComp: 1}
		twv = NodeData{Name: "tau_wall_vector", Time: t, Step: step, NComp: 3}
	)
	for i := 0; i <= sh.NX; i++ {
		for k := 0; k <= sh.NZ; k++ {
			tag := sh.nodeTag(i, 0, k)
			tau := sh.WallShear(md.Nodes[tag-1][0], t)
			tw.NodeTags = append(tw.NodeTags, tag)
			tw.Values = append(tw.Values, []float64{tau})
			twv.NodeTags = append(twv.NodeTags, tag)
			twv.Values = append(twv.Values, []float64{tau, 0, 0})
		}
	}
	return []NodeData{tw, twv}
}

// Write stores the synthetic case at path in Gmsh 2.2 format.
func (sh *SyntheticHill) Write(path string) (err error) {
	var (
		md   *MeshData
		file *os.File
	)
	if md, err = sh.MeshData(); err != nil {
		return
	}
	if file, err = os.Create(path); err != nil {
		return
	}
	if err = WriteGmsh22(file, md); err != nil {
		file.Close()
		return
	}
	return file.Close()
}
