package postprocess

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/notargets/hillpp/InputParameters"
	"github.com/notargets/hillpp/interpolate"
	"github.com/notargets/hillpp/meshio"
	"github.com/notargets/hillpp/parallel"
	"github.com/notargets/hillpp/table"
	"github.com/notargets/hillpp/utils"
)

const (
	ProfilesFile  = "profiles.dat"
	WallShearFile = "tw.dat"
)

// Profiles is one rank's share of the wall shear and plane profile
// reduction. Only rank 0 holds plane statistics and writes files.
type Profiles struct {
	ip         *InputParameters.PostProcessParameters
	comm       parallel.Communicator
	store      meshio.Store
	print      parallel.Printer
	method     interpolate.Method
	cache      *interpolate.WeightsCache
	planes     []*Plane
	meanFields []FieldColumns
	meanNames  []string
	wallFields []FieldColumns
	wallNames  []string
	outDir     string
}

func NewProfiles(ip *InputParameters.PostProcessParameters, comm parallel.Communicator,
	store meshio.Store, out io.Writer) (pp *Profiles, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	pp = &Profiles{
		ip:     ip,
		comm:   comm,
		store:  store,
		print:  parallel.NewPrinter(comm, out, "profiles"),
		cache:  interpolate.NewWeightsCache(),
		outDir: ip.OutputDir,
	}
	if pp.method, err = interpolate.ParseMethod(ip.Method); err != nil {
		return nil, err
	}
	if pp.outDir == "" {
		pp.outDir = filepath.Dir(ip.MeshFile)
	}
	for _, x := range ip.Planes {
		pp.planes = append(pp.planes, NewPlane(x))
	}
	return
}

// RunProfiles runs the reduction on every rank of world against the Gmsh
// store.
func RunProfiles(world *parallel.World, ip *InputParameters.PostProcessParameters, out io.Writer) error {
	return world.Run(func(comm parallel.Communicator) error {
		pp, err := NewProfiles(ip, comm, meshio.NewGmshStore(comm.Rank(), comm.Size()), out)
		if err != nil {
			return err
		}
		return pp.Run()
	})
}

func (pp *Profiles) Run() (err error) {
	if err = LoadMesh(pp.store, pp.ip.MeshFile, pp.ip.AutoDecomp, pp.print); err != nil {
		return
	}
	times := pp.store.TimeSteps()
	targets, steps, err := SelectTimeSteps(times, pp.ip.NAvg, pp.ip.Flowthrough, pp.ip.Factor)
	if err != nil {
		return
	}
	inst := InstantaneousRange(steps, len(times))
	pp.print("Averaging over %d steps, targets %v, steps %v", len(steps), targets, steps)
	pp.print("Instantaneous range: %d steps from t=%g", len(inst), times[inst[0]])
	if err = pp.resolveFields(); err != nil {
		return
	}
	var mean *table.Frame
	if mean, err = pp.accumulateMean(times, steps); err != nil {
		return
	}
	if err = pp.planeMeans(mean); err != nil {
		return
	}
	var (
		wall = NewRunningMean(len(CoordinateColumns), 0)
		fluc = parallel.NewStage(pp.comm, "fluctuations")
	)
	for _, s := range inst {
		if err = pp.store.ReadDefinedInputFields(times[s]); err != nil {
			return
		}
		pp.print("Loaded fields for time: %g", times[s])
		var f *table.Frame
		if f, err = ExtractRegionFields(pp.store, pp.ip.WallPart, pp.wallFields); err != nil {
			return
		}
		if err = wall.Add(f); err != nil {
			return
		}
		if err = pp.fluctuations(fluc, s); err != nil {
			return
		}
	}
	if err = pp.wallShear(wall.Mean()); err != nil {
		return
	}
	if pp.comm.Rank() == 0 {
		profiles := table.NewFrame()
		for n, p := range pp.planes {
			if n == 0 {
				profiles = p.Frame()
				continue
			}
			if err = profiles.AppendFrame(p.Frame()); err != nil {
				return
			}
		}
		path := filepath.Join(pp.outDir, ProfilesFile)
		if err = profiles.WriteFile(path); err != nil {
			return
		}
		pp.print("Wrote %d rows to %s (%d weight builds, %d reuses)",
			profiles.Len(), path, pp.cache.Builds, pp.cache.Hits)
	}
	return parallel.NewStage(pp.comm, "done").Barrier()
}

// LoadMesh reads the mesh metadata and bulk data into store.
func LoadMesh(store meshio.Store, path string, autoDecomp bool, printer parallel.Printer) (err error) {
	printer("Reading meta data for mesh: %s", path)
	if err = store.ReadMetaData(path, autoDecomp); err != nil {
		return
	}
	printer("Loading bulk data for mesh: %s", path)
	if err = store.PopulateBulkData(); err != nil {
		return
	}
	printer("Done reading bulk data, %s", utils.GetMemUsage())
	times := store.TimeSteps()
	if len(times) == 0 {
		return fmt.Errorf("%s has no time steps", path)
	}
	printer("Num. time steps = %d, max. time = %g", len(times), times[len(times)-1])
	return
}

// resolveFields decides the mean and wall columns from the fields the mesh
// defines. Every rank sees the same database, so every rank decides alike.
func (pp *Profiles) resolveFields() error {
	ip := pp.ip
	if !pp.store.Field(ip.VelocityField).IsDefined() {
		return fmt.Errorf("velocity field %s: %w", ip.VelocityField, meshio.ErrFieldNotDefined)
	}
	pp.meanFields = []FieldColumns{Vector(ip.VelocityField, "u", "v", "w")}
	pp.meanNames = []string{"u", "v", "w"}
	for _, fc := range []FieldColumns{Scalar(ip.TKEField, "tke"), Scalar(ip.SDRField, "sdr")} {
		if fc.Field != "" && pp.store.Field(fc.Field).IsDefined() {
			pp.meanFields = append(pp.meanFields, fc)
			pp.meanNames = append(pp.meanNames, fc.Columns...)
		}
	}
	if ip.StressField != "" && pp.store.Field(ip.StressField).IsDefined() {
		pp.meanFields = append(pp.meanFields,
			Vector(ip.StressField, "tau_xx", "tau_xy", "tau_xz", "tau_yy", "tau_yz", "tau_zz"))
		pp.meanNames = append(pp.meanNames, "tau_xx", "tau_xy", "tau_yy")
	}
	if !pp.store.Field(ip.WallShearField).IsDefined() {
		return fmt.Errorf("wall shear field %s: %w", ip.WallShearField, meshio.ErrFieldNotDefined)
	}
	pp.wallFields = []FieldColumns{Scalar(ip.WallShearField, "tauw")}
	pp.wallNames = []string{"x", "tauw"}
	if ip.WallShearVectorField != "" && pp.store.Field(ip.WallShearVectorField).IsDefined() {
		pp.wallFields = append(pp.wallFields, Vector(ip.WallShearVectorField, "tauwx", "tauwy", "tauwz"))
		pp.wallNames = append(pp.wallNames, "tauwx", "tauwy", "tauwz")
	}
	return nil
}

func (pp *Profiles) accumulateMean(times []float64, steps []int) (mean *table.Frame, err error) {
	legacyN := 0
	if pp.ip.LegacyAverage {
		legacyN = len(steps)
	}
	rm := NewRunningMean(len(CoordinateColumns), legacyN)
	for _, s := range steps {
		if err = pp.store.ReadDefinedInputFields(times[s]); err != nil {
			return
		}
		pp.print("Averaging fields at time: %g", times[s])
		var f *table.Frame
		if f, err = ExtractRegionFields(pp.store, pp.ip.FluidPart, pp.meanFields); err != nil {
			return
		}
		if err = rm.Add(f); err != nil {
			return
		}
	}
	return rm.Mean(), nil
}

// slab keeps the rows of f within the half width of plane p
func (pp *Profiles) slab(f *table.Frame, p *Plane) *table.Frame {
	ix := f.MustIndex("x")
	return f.Filter(func(row []float64) bool { return p.InSlab(row[ix], pp.ip.HalfWidth) })
}

func (pp *Profiles) planeMeans(mean *table.Frame) (err error) {
	st := parallel.NewStage(pp.comm, "plane means")
	for _, p := range pp.planes {
		var all []parallel.Envelope
		if all, err = st.Gather(mean.NCols(), pp.slab(mean, p).Data); err != nil {
			return
		}
		if pp.comm.Rank() != 0 {
			continue
		}
		var slab *table.Frame
		if slab, err = table.FromRows(mean.Names, parallel.Concat(all)); err != nil {
			return
		}
		if err = p.SetMean(slab, pp.meanNames, pp.ip.Resolution, pp.method); err != nil {
			return
		}
		pp.print("Plane x=%g: %d samples, y in [%g, %g]", p.X, slab.Len(), p.Y[0], p.Y[len(p.Y)-1])
	}
	return
}

func (pp *Profiles) fluctuations(st *parallel.Stage, step int) (err error) {
	var f *table.Frame
	if f, err = ExtractRegionFields(pp.store, pp.ip.FluidPart, pp.meanFields[:1]); err != nil {
		return
	}
	for n, p := range pp.planes {
		var all []parallel.Envelope
		if all, err = st.Gather(f.NCols(), pp.slab(f, p).Data); err != nil {
			return
		}
		if pp.comm.Rank() != 0 {
			continue
		}
		var slab *table.Frame
		if slab, err = table.FromRows(f.Names, parallel.Concat(all)); err != nil {
			return
		}
		var used, groups int
		for _, station := range splitBy(slab, "z") {
			var ok bool
			key := fmt.Sprintf("plane %d z %g", n, station.At(0, "z"))
			if ok, err = p.AddFluctuations(station, key, pp.cache, pp.method); err != nil {
				return
			}
			groups++
			if ok {
				used++
			}
		}
		if used < groups {
			pp.print("Step %d plane x=%g: %d of %d spanwise stations skipped as degenerate",
				step, p.X, groups-used, groups)
		}
	}
	return
}

// splitBy sorts f by the column and cuts it into runs of equal value
func splitBy(f *table.Frame, name string) (groups []*table.Frame) {
	sorted := f.Copy()
	if err := sorted.SortBy(name); err != nil {
		panic(err)
	}
	j := sorted.MustIndex(name)
	for i := 0; i < sorted.Len(); i++ {
		row := sorted.Row(i)
		if i == 0 || row[j] != sorted.Row(i-1)[j] {
			groups = append(groups, table.NewFrame(sorted.Names...))
		}
		groups[len(groups)-1].Append(row...)
	}
	return
}

func (pp *Profiles) wallShear(mean *table.Frame) (err error) {
	if mean == nil {
		return fmt.Errorf("no wall shear accumulated")
	}
	var all []parallel.Envelope
	if all, err = parallel.NewStage(pp.comm, "wall").Gather(mean.NCols(), mean.Data); err != nil {
		return
	}
	if pp.comm.Rank() != 0 {
		return
	}
	var f, tw *table.Frame
	if f, err = table.FromRows(mean.Names, parallel.Concat(all)); err != nil {
		return
	}
	if f, err = f.GroupMean("x"); err != nil {
		return
	}
	if tw, err = f.Select(pp.wallNames...); err != nil {
		return
	}
	path := filepath.Join(pp.outDir, WallShearFile)
	if err = tw.WriteFile(path); err != nil {
		return
	}
	pp.print("Wrote %d rows to %s", tw.Len(), path)
	return
}
