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

// PartCmd represents the part command
var PartCmd = &cobra.Command{
	Use:   "part",
	Short: "Time history of section averaged fields over a named part",
	Long: `
Integrates velocity, turbulent kinetic energy and specific dissipation rate
over the named part for every stored time step. Writes <part>.dat and the last
snapshot to f_<part>.dat.

hillpp part -m hill.msh -p inlet`,
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
		return postprocess.RunSectionHistory(parallel.NewWorld(nranks), ip, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(PartCmd)
	addCommonFlags(PartCmd)
	PartCmd.Flags().StringP("part", "p", "", "Name of the part to integrate")
}
