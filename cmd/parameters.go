package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notargets/hillpp/InputParameters"
)

const exampleFile = `
########################################
Title: "Periodic hill"
MeshFile: hill.msh
NAvg: 10
Flowthrough: 9.0
Factor: 1.2 # 0 averages the last NAvg steps
VelocityField: velocity
Resolution: 100
Method: cubic # or linear
########################################
`

// loadParameters starts from the defaults, overlays the -I parameter file and
// then every value set by a changed flag, a HILLPP_ environment variable or
// the config file.
func loadParameters(cmd *cobra.Command) (ip *InputParameters.PostProcessParameters, err error) {
	ip = InputParameters.NewPostProcessParameters()
	var icFile string
	if cmd.Flags().Lookup("inputConditionsFile") != nil {
		if icFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
	}
	if icFile != "" {
		var data []byte
		if data, err = os.ReadFile(icFile); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w\nExample File:%s", icFile, err, exampleFile)
		}
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = viper.BindPFlag(f.Name, f)
		}
	})
	if err != nil {
		return
	}
	for _, key := range []string{"mfile", "output", "auto_decomp", "navg", "flowthrough", "factor",
		"velocity", "method", "resolution", "legacy_average", "part"} {
		if !viper.IsSet(key) {
			continue
		}
		switch key {
		case "mfile":
			ip.MeshFile = viper.GetString(key)
		case "output":
			ip.OutputDir = viper.GetString(key)
		case "auto_decomp":
			ip.AutoDecomp = viper.GetBool(key)
		case "navg":
			ip.NAvg = viper.GetInt(key)
		case "flowthrough":
			ip.Flowthrough = viper.GetFloat64(key)
		case "factor":
			ip.Factor = viper.GetFloat64(key)
		case "velocity":
			ip.VelocityField = viper.GetString(key)
		case "method":
			ip.Method = viper.GetString(key)
		case "resolution":
			ip.Resolution = viper.GetInt(key)
		case "legacy_average":
			ip.LegacyAverage = viper.GetBool(key)
		case "part":
			ip.Part = viper.GetString(key)
		}
	}
	if ip.MeshFile == "" {
		return nil, fmt.Errorf("must supply a mesh file (-m, --mfile) in Gmsh 2.2 format")
	}
	return
}

func numRanks() (n int, err error) {
	if n = viper.GetInt("nranks"); n < 1 {
		return 0, fmt.Errorf("nranks must be at least 1, have %d", n)
	}
	return
}

// addCommonFlags registers the flags shared by the mesh reading commands
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mfile", "m", "", "Mesh file with field time series in Gmsh 2.2 format")
	cmd.Flags().StringP("output", "o", "", "Directory for the output tables (default is the mesh directory)")
	cmd.Flags().Bool("auto_decomp", false, "Decompose the mesh nodes over the ranks instead of using its partitions")
	cmd.Flags().IntP("nranks", "n", 1, "Number of ranks")
	cmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters")
}
