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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notargets/hillpp/meshio"
)

// SyntheticCmd represents the synthetic command
var SyntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Write a partitioned periodic hill mesh with analytic fields",
	Long: `
Writes a structured periodic hill channel in Gmsh 2.2 format with a velocity,
turbulence, subfilter stress and wall shear time series. A zero amplitude gives
a steady flow.

hillpp synthetic -o hill.msh --partitions 4`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			sh    = meshio.NewSyntheticHill()
			path  string
			steps int
			dt    float64
			flags = cmd.Flags()
		)
		if path, err = flags.GetString("output"); err != nil {
			return
		}
		if path == "" {
			return fmt.Errorf("must supply an output file (-o)")
		}
		for name, ptr := range map[string]*int{"nx": &sh.NX, "ny": &sh.NY, "nz": &sh.NZ, "partitions": &sh.Partitions,
			"steps": &steps} {
			if *ptr, err = flags.GetInt(name); err != nil {
				return
			}
		}
		for name, ptr := range map[string]*float64{"dt": &dt, "amplitude": &sh.Amplitude, "period": &sh.Period} {
			if *ptr, err = flags.GetFloat64(name); err != nil {
				return
			}
		}
		sh.Times = sh.Times[:0]
		for i := 0; i < steps; i++ {
			sh.Times = append(sh.Times, float64(i)*dt)
		}
		if err = sh.Write(path); err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d time steps on %d partitions to %s\n", steps, sh.Partitions, path)
		return
	},
}

func init() {
	rootCmd.AddCommand(SyntheticCmd)
	d := meshio.NewSyntheticHill()
	SyntheticCmd.Flags().StringP("output", "o", "", "Mesh file to write")
	SyntheticCmd.Flags().Int("nx", d.NX, "Cells in the streamwise direction")
	SyntheticCmd.Flags().Int("ny", d.NY, "Cells in the wall normal direction")
	SyntheticCmd.Flags().Int("nz", d.NZ, "Cells in the spanwise direction")
	SyntheticCmd.Flags().Int("partitions", d.Partitions, "Number of mesh partitions")
	SyntheticCmd.Flags().Int("steps", len(d.Times), "Number of time steps")
	SyntheticCmd.Flags().Float64("dt", 1, "Time between steps")
	SyntheticCmd.Flags().Float64("amplitude", d.Amplitude, "Amplitude of the unsteady part, 0 is steady")
	SyntheticCmd.Flags().Float64("period", d.Period, "Period of the unsteady part")
}
