/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notargets/hillpp/InputParameters"
	"github.com/notargets/hillpp/parallel"
	"github.com/notargets/hillpp/postprocess"
)

// ProfilesCmd represents the profiles command
var ProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Wall shear and plane profile statistics of a periodic hill run",
	Long: `
Averages the wall shear stress over the selected time steps and reconstructs
mean and Reynolds stress profiles on the ten analysis planes. Writes tw.dat and
profiles.dat next to the mesh file.

hillpp profiles -m hill.msh --navg 10 --flowthrough 9.0 --factor 1.2 --nranks 4`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ip     *InputParameters.PostProcessParameters
			nranks int
		)
		if ip, err = loadParameters(cmd); err != nil {
			return
		}
		if nranks, err = numRanks(); err != nil {
			return
		}
		ip.Fprint(cmd.OutOrStdout())
		return postprocess.RunProfiles(parallel.NewWorld(nranks), ip, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(ProfilesCmd)
	d := InputParameters.NewPostProcessParameters()
	addCommonFlags(ProfilesCmd)
	ProfilesCmd.Flags().Int("navg", d.NAvg, "Number of time steps to average")
	ProfilesCmd.Flags().Float64("flowthrough", d.Flowthrough, "Flow through time")
	ProfilesCmd.Flags().Float64("factor", d.Factor, "Multiple of the flow through time between averaged steps, 0 takes the last navg steps")
	ProfilesCmd.Flags().String("velocity", d.VelocityField, "Name of the velocity field")
	ProfilesCmd.Flags().String("method", d.Method, "Plane reconstruction, linear or cubic")
	ProfilesCmd.Flags().Int("resolution", d.Resolution, "Number of points on each plane profile")
	ProfilesCmd.Flags().Bool("legacy_average", d.LegacyAverage, "Divide every accumulated term by navg instead of the running count")
}
