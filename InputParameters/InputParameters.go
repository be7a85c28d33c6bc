package InputParameters

import (
	"fmt"
	"io"

	"github.com/ghodss/yaml"

	"github.com/notargets/hillpp/geometry2D"
)

// Parameters obtained from the YAML input file
type PostProcessParameters struct {
	Title                string    `json:"Title"`
	MeshFile             string    `json:"MeshFile"`
	OutputDir            string    `json:"OutputDir"` // Defaults to the directory of MeshFile
	AutoDecomp           bool      `json:"AutoDecomp"`
	NAvg                 int       `json:"NAvg"`
	Flowthrough          float64   `json:"Flowthrough"`
	Factor               float64   `json:"Factor"`
	VelocityField        string    `json:"VelocityField"`
	TKEField             string    `json:"TKEField"`
	SDRField             string    `json:"SDRField"`
	StressField          string    `json:"StressField"` // Symmetric tensor, xx xy xz yy yz zz
	WallShearField       string    `json:"WallShearField"`
	WallShearVectorField string    `json:"WallShearVectorField"`
	FluidPart            string    `json:"FluidPart"`
	WallPart             string    `json:"WallPart"`
	Part                 string    `json:"Part"` // Cross section for the part history
	Planes               []float64 `json:"Planes"`
	HalfWidth            float64   `json:"HalfWidth"`
	Resolution           int       `json:"Resolution"`
	Method               string    `json:"Method"`
	LegacyAverage        bool      `json:"LegacyAverage"`
}

func NewPostProcessParameters() *PostProcessParameters {
	return &PostProcessParameters{
		Title:                "Periodic hill",
		NAvg:                 10,
		Flowthrough:          9.0,
		Factor:               1.2,
		VelocityField:        "velocity",
		TKEField:             "turbulent_ke",
		SDRField:             "specific_dissipation_rate",
		StressField:          "sfs_stress",
		WallShearField:       "tau_wall",
		WallShearVectorField: "tau_wall_vector",
		FluidPart:            "fluid",
		WallPart:             "bottomwall",
		Planes:               geometry2D.AnalysisPlanes(),
		HalfWidth:            0.05 * 4,
		Resolution:           100,
		Method:               "cubic",
	}
}

// Parse overlays the YAML document onto the current values
func (ip *PostProcessParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *PostProcessParameters) Validate() error {
	switch {
	case ip.MeshFile == "":
		return fmt.Errorf("no mesh file given")
	case ip.NAvg < 1:
		return fmt.Errorf("navg must be at least 1, have %d", ip.NAvg)
	case ip.Factor > 0 && ip.Flowthrough <= 0:
		return fmt.Errorf("flowthrough time must be positive, have %g", ip.Flowthrough)
	case ip.Resolution < 2:
		return fmt.Errorf("plane resolution must be at least 2, have %d", ip.Resolution)
	case ip.HalfWidth <= 0:
		return fmt.Errorf("plane half width must be positive, have %g", ip.HalfWidth)
	case ip.VelocityField == "":
		return fmt.Errorf("no velocity field name given")
	case len(ip.Planes) == 0:
		return fmt.Errorf("no analysis planes given")
	}
	for i := 1; i < len(ip.Planes); i++ {
		if ip.Planes[i] <= ip.Planes[i-1] {
			return fmt.Errorf("planes must be strictly increasing, have %v", ip.Planes)
		}
	}
	return nil
}

func (ip *PostProcessParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t= MeshFile\n", ip.MeshFile)
	fmt.Fprintf(w, "%v\t\t\t= AutoDecomp\n", ip.AutoDecomp)
	fmt.Fprintf(w, "[%d]\t\t\t= NAvg\n", ip.NAvg)
	fmt.Fprintf(w, "%8.5f\t\t= Flowthrough\n", ip.Flowthrough)
	fmt.Fprintf(w, "%8.5f\t\t= Factor\n", ip.Factor)
	fmt.Fprintf(w, "[%s]\t\t= Velocity Field\n", ip.VelocityField)
	fmt.Fprintf(w, "[%s]\t\t\t= Method\n", ip.Method)
	fmt.Fprintf(w, "[%d]\t\t\t= Resolution\n", ip.Resolution)
	fmt.Fprintf(w, "%v\t= Planes\n", ip.Planes)
	if ip.LegacyAverage {
		fmt.Fprintf(w, "per-term division\t= Averaging\n")
	}
}
