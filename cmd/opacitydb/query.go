package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"opacitydb/internal/opacity"
	"opacitydb/internal/store"
)

type queryEntry struct {
	Pressure      float64   `json:"pressure_bar"`
	Temperature   float64   `json:"temperature_k"`
	CrossSections []float64 `json:"cross_sections_cm2"`
}

type queryOutput struct {
	Species     string       `json:"species"`
	Resolution  float64      `json:"resolution"`
	Wavenumbers []float64    `json:"wavenumbers_cm1"`
	Entries     []queryEntry `json:"entries"`
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var (
		pressures    []float64
		temperatures []float64
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "query <species>",
		Short: "Print stored cross sections for a species",
		Long: "Selects the cartesian product of the requested pressures and temperatures.\n" +
			"Omitting an axis selects every stored value on it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				table, err := st.QueryMolecular(cmd.Context(), args[0], pressures, temperatures)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, toQueryOutput(table))
				}
				return writeEntrySummary(cmd, table)
			})
		},
	}

	cmd.Flags().Float64SliceVarP(&pressures, "pressure", "p", nil, "Pressures in bar")
	cmd.Flags().Float64SliceVarP(&temperatures, "temperature", "t", nil, "Temperatures in K")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full entries as JSON")
	return cmd
}

func toQueryOutput(table *opacity.CrossSectionTable) queryOutput {
	out := queryOutput{
		Species:     table.Species,
		Resolution:  table.Grid.Resolution(),
		Wavenumbers: table.Grid.Wavenumbers(),
	}
	for _, key := range table.Keys() {
		values, _ := table.Get(key)
		out.Entries = append(out.Entries, queryEntry{
			Pressure:      key.Pressure,
			Temperature:   key.Temperature,
			CrossSections: values,
		})
	}
	return out
}

func writeEntrySummary(cmd *cobra.Command, table *opacity.CrossSectionTable) error {
	headers := []string{"Pressure (bar)", "Temperature (K)", "Points", "Min", "Max", "Nonzero"}
	var rows [][]string
	for _, key := range table.Keys() {
		values, _ := table.Get(key)
		lo, hi, nonzero := summarize(values)
		rows = append(rows, []string{
			formatFloat(key.Pressure),
			formatFloat(key.Temperature),
			formatCount(len(values)),
			fmt.Sprintf("%.4g", lo),
			fmt.Sprintf("%.4g", hi),
			formatCount(nonzero),
		})
	}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	return writeRows(cmd.OutOrStdout(), headers, rows, aligns)
}

func summarize(values []float64) (lo, hi float64, nonzero int) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if v != 0 {
			nonzero++
		}
	}
	return lo, hi, nonzero
}
