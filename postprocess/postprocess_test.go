package postprocess

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/hillpp/InputParameters"
	"github.com/notargets/hillpp/geometry2D"
	"github.com/notargets/hillpp/interpolate"
	"github.com/notargets/hillpp/meshio"
	"github.com/notargets/hillpp/parallel"
	"github.com/notargets/hillpp/table"
)

func TestSelectTimeSteps(t *testing.T) {
	times := make([]float64, 21)
	for i := range times {
		times[i] = float64(i)
	}
	targets, steps, err := SelectTimeSteps(times, 3, 9.0, 1.2)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.InDelta(t, -1.6, targets[0], 1.e-12)
	assert.InDelta(t, 9.2, targets[1], 1.e-12)
	assert.InDelta(t, 20., targets[2], 1.e-12)
	assert.Equal(t, []int{0, 9, 20}, steps)
	assert.Equal(t, 21, len(InstantaneousRange(steps, len(times))))

	// Ties go to the earlier step and repeats are kept
	_, steps, err = SelectTimeSteps([]float64{0, 10, 20}, 3, 5., 1.)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2}, steps)
	assert.Equal(t, []int{1, 2}, InstantaneousRange(steps, 3))

	_, steps, err = SelectTimeSteps(times, 4, 9.0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{17, 18, 19, 20}, steps)
	_, steps, err = SelectTimeSteps(times[:2], 4, 9.0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, steps)

	_, _, err = SelectTimeSteps(nil, 3, 9, 1.2)
	assert.Error(t, err)
	_, _, err = SelectTimeSteps(times, 0, 9, 1.2)
	assert.Error(t, err)
	assert.Nil(t, InstantaneousRange(nil, 5))
}

func TestRunningMean(t *testing.T) {
	a, err := table.FromRows([]string{"x", "u"}, []float64{0, 1, 1, 2})
	require.NoError(t, err)
	b, err := table.FromRows([]string{"x", "u"}, []float64{0, 3, 1, 5})
	require.NoError(t, err)

	rm := NewRunningMean(1, 0)
	assert.Nil(t, rm.Mean())
	require.NoError(t, rm.Add(a))
	require.NoError(t, rm.Add(b))
	assert.Equal(t, 2, rm.Count())
	assert.Equal(t, []float64{0, 2, 1, 3.5}, rm.Mean().Data)
	// Mean does not disturb the running sums
	require.NoError(t, rm.Add(a))
	assert.Equal(t, []float64{0, 5. / 3, 1, 3}, rm.Mean().Data)

	legacy := NewRunningMean(1, 2)
	require.NoError(t, legacy.Add(a))
	require.NoError(t, legacy.Add(b))
	assert.Equal(t, []float64{0, 2, 1, 3.5}, legacy.Mean().Data)

	short, err := table.FromRows([]string{"x", "u"}, []float64{0, 3})
	require.NoError(t, err)
	assert.Error(t, rm.Add(short))
	assert.Error(t, NewRunningMean(3, 0).Add(a))
}

func testPlaneSlab(du float64) *table.Frame {
	slab := table.NewFrame("x", "y", "z", "u", "v", "w")
	for _, x := range []float64{0.9, 1.0, 1.1} {
		for j := 0; j <= 6; j++ {
			y := 0.5 * float64(j)
			for _, z := range []float64{0, 2} {
				slab.Append(x, y, z, 2*x+y+du, y, 0)
			}
		}
	}
	return slab
}

func TestPlane(t *testing.T) {
	p := NewPlane(1.0)
	assert.True(t, p.InSlab(0.81, 0.2))
	assert.False(t, p.InSlab(1.2, 0.1))
	_, err := p.AddFluctuations(testPlaneSlab(0), "z 0", interpolate.NewWeightsCache(), interpolate.Linear)
	assert.Error(t, err)

	require.NoError(t, p.SetMean(testPlaneSlab(0), []string{"u", "v", "w"}, 11, interpolate.Linear))
	h0 := geometry2D.HillElevation([]float64{1.0})[0]
	assert.Equal(t, h0, p.Y[0])
	assert.Equal(t, 3., p.Y[10])
	for j, y := range p.Y {
		assert.InDelta(t, 2+y, p.Mean[0][j], 1.e-12)
		assert.InDelta(t, y, p.Mean[1][j], 1.e-12)
		assert.Equal(t, 0., p.Mean[2][j])
	}

	cache := interpolate.NewWeightsCache()
	for _, du := range []float64{0, 0.1} {
		for _, station := range splitBy(testPlaneSlab(du), "z") {
			used, err := p.AddFluctuations(station, fmt.Sprintf("z %g", station.At(0, "z")), cache, interpolate.Linear)
			require.NoError(t, err)
			assert.True(t, used)
		}
	}
	assert.Equal(t, 2, cache.Builds)
	assert.Equal(t, 2, cache.Hits)
	for _, c := range p.Counts() {
		assert.Equal(t, 4, c)
	}
	// A station on a single streamwise line has no 2-D hull
	line := testPlaneSlab(0).Filter(func(row []float64) bool { return row[0] == 1.0 && row[2] == 0 })
	used, err := p.AddFluctuations(line, "line", cache, interpolate.Linear)
	require.NoError(t, err)
	assert.False(t, used)

	f := p.Frame()
	assert.Equal(t, []string{"x", "y", "u", "v", "w", "upup", "vpvp", "upvp"}, f.Names)
	require.Equal(t, 11, f.Len())
	for i := 0; i < f.Len(); i++ {
		assert.InDelta(t, 0.01/2, f.At(i, "upup"), 1.e-12)
		assert.InDelta(t, 0., f.At(i, "vpvp"), 1.e-20)
		assert.InDelta(t, 0., f.At(i, "upvp"), 1.e-12)
	}

	empty := NewPlane(4.)
	assert.Error(t, empty.SetMean(table.NewFrame("x", "y", "u"), []string{"u"}, 10, interpolate.Cubic))
}

func TestSplitBy(t *testing.T) {
	f, err := table.FromRows([]string{"z", "u"}, []float64{2, 1, 0, 2, 2, 3, 0, 4})
	require.NoError(t, err)
	groups := splitBy(f, "z")
	require.Len(t, groups, 2)
	assert.Equal(t, []float64{0, 2, 0, 4}, groups[0].Data)
	assert.Equal(t, []float64{2, 1, 2, 3}, groups[1].Data)
	assert.Empty(t, splitBy(table.NewFrame("z"), "z"))
}

func writeHill(t *testing.T, amplitude float64, partitions int) (path string, sh *meshio.SyntheticHill) {
	t.Helper()
	sh = meshio.NewSyntheticHill()
	sh.NY, sh.NZ = 6, 1
	sh.Partitions = partitions
	sh.Amplitude = amplitude
	sh.Times = []float64{0, 1, 2, 3, 4, 5, 6}
	path = filepath.Join(t.TempDir(), "hill.msh")
	require.NoError(t, sh.Write(path))
	return
}

func hillParameters(path string) *InputParameters.PostProcessParameters {
	ip := InputParameters.NewPostProcessParameters()
	ip.MeshFile = path
	ip.NAvg = 3
	ip.Flowthrough = 1
	ip.Factor = 2
	ip.Resolution = 20
	return ip
}

func TestExtractRegionFields(t *testing.T) {
	path, sh := writeHill(t, 0.1, 1)
	store := meshio.NewGmshStore(0, 1)
	require.NoError(t, store.ReadMetaData(path, false))
	require.NoError(t, store.PopulateBulkData())
	require.NoError(t, store.ReadDefinedInputFields(3))

	f, err := ExtractRegionFields(store, "fluid", []FieldColumns{
		Vector("velocity", "u", "v", "w"), Scalar("turbulent_ke", "tke")})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z", "u", "v", "w", "tke"}, f.Names)
	assert.Equal(t, 91*7*2, f.Len())
	for i := 0; i < f.Len(); i += 37 {
		u, v, w := sh.Velocity(f.At(i, "x"), f.At(i, "y"), 3)
		assert.InDelta(t, u, f.At(i, "u"), 1.e-15)
		assert.InDelta(t, v, f.At(i, "v"), 1.e-15)
		assert.Equal(t, w, f.At(i, "w"))
	}

	_, err = ExtractRegionFields(store, "outlet", nil)
	assert.True(t, errors.Is(err, meshio.ErrPartNotFound))
	_, err = ExtractRegionFields(store, "fluid", []FieldColumns{Scalar("pressure", "p")})
	assert.True(t, errors.Is(err, meshio.ErrFieldNotDefined))
	_, err = ExtractRegionFields(store, "fluid", []FieldColumns{Scalar("velocity", "u")})
	assert.Error(t, err)
	// The wall shear exists only on the wall
	_, err = ExtractRegionFields(store, "fluid", []FieldColumns{Scalar("tau_wall", "tauw")})
	assert.True(t, errors.Is(err, meshio.ErrFieldNotLoaded))
}

func TestProfilesSteady(t *testing.T) {
	path, sh := writeHill(t, 0, 2)
	ip := hillParameters(path)
	var log bytes.Buffer
	require.NoError(t, RunProfiles(parallel.NewWorld(2), ip, &log))
	assert.Contains(t, log.String(), "profiles: Reading meta data for mesh")
	assert.Contains(t, log.String(), "profiles: Done reading bulk data, Alloc = ")

	profiles, err := table.ReadFile(filepath.Join(filepath.Dir(path), ProfilesFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "u", "v", "w", "tke", "sdr", "tau_xx", "tau_xy", "tau_yy",
		"upup", "vpvp", "upvp"}, profiles.Names)
	planes := geometry2D.AnalysisPlanes()
	require.Equal(t, len(planes)*ip.Resolution, profiles.Len())
	for i := 0; i < profiles.Len(); i++ {
		n, j := i/ip.Resolution, i%ip.Resolution
		assert.Equal(t, planes[n], profiles.At(i, "x"))
		if j == 0 {
			assert.Equal(t, geometry2D.HillElevation([]float64{planes[n]})[0], profiles.At(i, "y"))
		} else {
			assert.True(t, profiles.At(i, "y") > profiles.At(i-1, "y"))
		}
		for _, name := range []string{"upup", "vpvp", "upvp"} {
			assert.InDelta(t, 0., profiles.At(i, name), 1.e-24, "%s at row %d", name, i)
		}
		assert.InDelta(t, 0., profiles.At(i, "w"), 1.e-15)
	}
	assert.InDelta(t, sh.Ly, profiles.At(profiles.Len()-1, "y"), 1.e-12)

	tw, err := table.ReadFile(filepath.Join(filepath.Dir(path), WallShearFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "tauw", "tauwx", "tauwy", "tauwz"}, tw.Names)
	require.Equal(t, sh.NX+1, tw.Len())
	for i := 0; i < tw.Len(); i++ {
		x := tw.At(i, "x")
		if i > 0 {
			assert.True(t, x > tw.At(i-1, "x"))
		}
		assert.InDelta(t, sh.WallShear(x, 0), tw.At(i, "tauw"), 1.e-15)
		assert.InDelta(t, tw.At(i, "tauw"), tw.At(i, "tauwx"), 1.e-15)
	}
}

func TestProfilesUnsteady(t *testing.T) {
	path, _ := writeHill(t, 0.2, 2)
	ip := hillParameters(path)
	read := func(name string) []byte {
		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), name))
		require.NoError(t, err)
		return data
	}
	world := parallel.NewWorld(2)
	require.NoError(t, RunProfiles(world, ip, nil))
	first, firstTw := read(ProfilesFile), read(WallShearFile)
	// Reruns are byte identical
	require.NoError(t, RunProfiles(world, ip, nil))
	assert.Equal(t, first, read(ProfilesFile))
	assert.Equal(t, firstTw, read(WallShearFile))

	profiles, err := table.ReadCSV(bytes.NewReader(first))
	require.NoError(t, err)
	var positive int
	for i := 0; i < profiles.Len(); i++ {
		assert.True(t, profiles.At(i, "upup") >= 0)
		assert.True(t, profiles.At(i, "vpvp") >= 0)
		if profiles.At(i, "upup") > 1.e-6 {
			positive++
		}
	}
	assert.True(t, positive > profiles.Len()/2)

	// One rank with automatic decomposition gives the same statistics
	ip.AutoDecomp = true
	require.NoError(t, RunProfiles(parallel.NewWorld(1), ip, nil))
	serial, err := table.ReadFile(filepath.Join(filepath.Dir(path), ProfilesFile))
	require.NoError(t, err)
	require.Equal(t, profiles.Len(), serial.Len())
	assert.InDeltaSlice(t, profiles.Data, serial.Data, 1.e-9)
}

func TestProfilesLegacyAverage(t *testing.T) {
	path, _ := writeHill(t, 0.2, 1)
	ip := hillParameters(path)
	require.NoError(t, RunProfiles(parallel.NewWorld(1), ip, nil))
	batch, err := table.ReadFile(filepath.Join(filepath.Dir(path), ProfilesFile))
	require.NoError(t, err)
	ip.LegacyAverage = true
	require.NoError(t, RunProfiles(parallel.NewWorld(1), ip, nil))
	legacy, err := table.ReadFile(filepath.Join(filepath.Dir(path), ProfilesFile))
	require.NoError(t, err)
	assert.InDeltaSlice(t, batch.Data, legacy.Data, 1.e-12)
}

func TestProfilesFailures(t *testing.T) {
	path, _ := writeHill(t, 0.1, 2)
	{ // Three ranks on a two partition mesh
		err := RunProfiles(parallel.NewWorld(3), hillParameters(path), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--auto_decomp")
	}
	{
		ip := hillParameters(path)
		ip.VelocityField = "average_velocity"
		err := RunProfiles(parallel.NewWorld(2), ip, nil)
		assert.True(t, errors.Is(err, meshio.ErrFieldNotDefined))
	}
	{
		ip := hillParameters(path)
		ip.WallPart = "topwall"
		err := RunProfiles(parallel.NewWorld(2), ip, nil)
		assert.True(t, errors.Is(err, meshio.ErrPartNotFound))
	}
	{
		ip := hillParameters(path)
		ip.Method = "nearest"
		assert.Error(t, RunProfiles(parallel.NewWorld(1), ip, nil))
	}
	{ // A plane beyond the domain has no samples
		ip := hillParameters(path)
		ip.Planes = []float64{1, 12}
		err := RunProfiles(parallel.NewWorld(2), ip, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no samples")
	}
}

func TestSectionHistory(t *testing.T) {
	path, sh := writeHill(t, 0, 2)
	ip := InputParameters.NewPostProcessParameters()
	ip.MeshFile = path
	ip.Part = "inlet"
	require.NoError(t, RunSectionHistory(parallel.NewWorld(2), ip, nil))

	history, err := table.ReadFile(filepath.Join(filepath.Dir(path), "inlet.dat"))
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "u", "tke", "sdr"}, history.Names)
	require.Equal(t, len(sh.Times), history.Len())
	for i := 0; i < history.Len(); i++ {
		assert.Equal(t, sh.Times[i], history.At(i, "t"))
		// Linear profiles integrate exactly with the trapezoidal rule
		assert.InDelta(t, 0.5, history.At(i, "u"), 1.e-12)
		assert.InDelta(t, 0.01, history.At(i, "tke"), 1.e-12)
		assert.InDelta(t, 1.5, history.At(i, "sdr"), 1.e-12)
	}
	snapshot, err := table.ReadFile(filepath.Join(filepath.Dir(path), "f_inlet.dat"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z", "u", "v", "w", "tke", "sdr"}, snapshot.Names)
	assert.Equal(t, (sh.NY+1)*(sh.NZ+1), snapshot.Len())
	for i := 0; i < snapshot.Len(); i++ {
		assert.Equal(t, 0., snapshot.At(i, "x"))
	}

	ip.Part = "outlet"
	err = RunSectionHistory(parallel.NewWorld(1), ip, nil)
	assert.True(t, errors.Is(err, meshio.ErrPartNotFound))
	ip.Part = ""
	assert.Error(t, RunSectionHistory(parallel.NewWorld(1), ip, nil))
}

func TestSectionAverages(t *testing.T) {
	f, err := table.FromRows([]string{"y", "z", "u"}, []float64{
		0, 0, 0,
		0, 1, 2,
		2, 0, 2,
		2, 1, 2,
		4, 0, 4,
	})
	require.NoError(t, err)
	avg, err := SectionAverages(f, "u")
	require.NoError(t, err)
	// Means by y are 1, 2, 4
	assert.InDelta(t, (3.+6.)/4, avg[0], 1.e-15)
	_, err = SectionAverages(f, "tke")
	assert.Error(t, err)
	flat, err := table.FromRows([]string{"y", "u"}, []float64{1, 1, 1, 2})
	require.NoError(t, err)
	_, err = SectionAverages(flat, "u")
	assert.Error(t, err)
	assert.False(t, math.IsNaN(avg[0]))
}
