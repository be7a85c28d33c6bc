package postprocess

import (
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/notargets/hillpp/InputParameters"
	"github.com/notargets/hillpp/meshio"
	"github.com/notargets/hillpp/parallel"
	"github.com/notargets/hillpp/table"
)

// SectionHistory integrates the velocity and turbulence fields across a
// named part at every stored time step.
type SectionHistory struct {
	ip     *InputParameters.PostProcessParameters
	comm   parallel.Communicator
	store  meshio.Store
	print  parallel.Printer
	outDir string
}

func NewSectionHistory(ip *InputParameters.PostProcessParameters, comm parallel.Communicator,
	store meshio.Store, out io.Writer) (sh *SectionHistory, err error) {
	switch {
	case ip.MeshFile == "":
		return nil, fmt.Errorf("no mesh file given")
	case ip.Part == "":
		return nil, fmt.Errorf("no part given")
	}
	sh = &SectionHistory{
		ip:     ip,
		comm:   comm,
		store:  store,
		print:  parallel.NewPrinter(comm, out, "part"),
		outDir: ip.OutputDir,
	}
	if sh.outDir == "" {
		sh.outDir = filepath.Dir(ip.MeshFile)
	}
	return
}

func RunSectionHistory(world *parallel.World, ip *InputParameters.PostProcessParameters, out io.Writer) error {
	return world.Run(func(comm parallel.Communicator) error {
		sh, err := NewSectionHistory(ip, comm, meshio.NewGmshStore(comm.Rank(), comm.Size()), out)
		if err != nil {
			return err
		}
		return sh.Run()
	})
}

func (sh *SectionHistory) fields() []FieldColumns {
	return []FieldColumns{
		Vector(sh.ip.VelocityField, "u", "v", "w"),
		Scalar(sh.ip.TKEField, "tke"),
		Scalar(sh.ip.SDRField, "sdr"),
	}
}

func (sh *SectionHistory) Run() (err error) {
	if err = LoadMesh(sh.store, sh.ip.MeshFile, sh.ip.AutoDecomp, sh.print); err != nil {
		return
	}
	var (
		times   = sh.store.TimeSteps()
		st      = parallel.NewStage(sh.comm, "section")
		history = table.NewFrame("t", "u", "tke", "sdr")
	)
	for k, t := range times {
		if err = sh.store.ReadDefinedInputFields(t); err != nil {
			return
		}
		sh.print("Loaded fields for time: %g", t)
		var f *table.Frame
		if f, err = ExtractRegionFields(sh.store, sh.ip.Part, sh.fields()); err != nil {
			return
		}
		var all []parallel.Envelope
		if all, err = st.Gather(f.NCols(), f.Data); err != nil {
			return
		}
		if sh.comm.Rank() != 0 {
			continue
		}
		var snapshot *table.Frame
		if snapshot, err = table.FromRows(f.Names, parallel.Concat(all)); err != nil {
			return
		}
		if k == len(times)-1 {
			path := filepath.Join(sh.outDir, fmt.Sprintf("f_%s.dat", sh.ip.Part))
			if err = snapshot.WriteFile(path); err != nil {
				return
			}
			sh.print("Wrote %d nodes to %s", snapshot.Len(), path)
		}
		var row []float64
		if row, err = SectionAverages(snapshot, "u", "tke", "sdr"); err != nil {
			return fmt.Errorf("part %s at t=%g: %w", sh.ip.Part, t, err)
		}
		history.Append(append([]float64{t}, row...)...)
	}
	if sh.comm.Rank() == 0 {
		path := filepath.Join(sh.outDir, fmt.Sprintf("%s.dat", sh.ip.Part))
		if err = history.WriteFile(path); err != nil {
			return
		}
		sh.print("Wrote %d steps to %s", history.Len(), path)
	}
	return parallel.NewStage(sh.comm, "done").Barrier()
}

// SectionAverages averages the snapshot over spanwise duplicates of y and
// returns the trapezoidal integral of each column over y divided by the
// section height.
func SectionAverages(snapshot *table.Frame, names ...string) (avg []float64, err error) {
	var means *table.Frame
	if means, err = snapshot.GroupMean("y"); err != nil {
		return
	}
	if means.Len() < 2 {
		return nil, fmt.Errorf("section has %d distinct heights, need 2", means.Len())
	}
	var (
		y  = means.Col("y")
		ly = floats.Max(y) - floats.Min(y)
	)
	for _, name := range names {
		if !means.Has(name) {
			return nil, fmt.Errorf("no column %s in section", name)
		}
		avg = append(avg, integrate.Trapezoidal(y, means.Col(name))/ly)
	}
	return
}
