package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opacitydb/internal/resample"
	"opacitydb/internal/spectral"
)

func newGridCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "Describe the canonical and target grids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			canonical, err := spectral.NewConstantR(cfg.Grid.MinWavelength, cfg.Grid.MaxWavelength, cfg.Grid.OldR)
			if err != nil {
				return err
			}
			target, err := canonical.Decimate(cfg.Grid.NewR)
			if err != nil {
				return err
			}

			headers := []string{"Grid", "R", "Stride", "Points", "Min ν (cm⁻¹)", "Max ν (cm⁻¹)"}
			rows := [][]string{gridRow("canonical", canonical), gridRow("target", target)}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
			if err := writeRows(cmd.OutOrStdout(), headers, rows, aligns); err != nil {
				return err
			}
			if resample.AliasingRisk(cfg.Grid.OldR, cfg.Grid.NewR) {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: new_r %g keeps fewer than %d canonical points per bin of old_r %g; aliasing likely\n",
					cfg.Grid.NewR, resample.SafeStride, cfg.Grid.OldR)
			}
			return nil
		},
	}
}

func gridRow(name string, g *spectral.Grid) []string {
	return []string{
		name,
		formatFloat(g.Resolution()),
		formatCount(g.Stride()),
		formatCount(g.Len()),
		fmt.Sprintf("%.6g", g.Wavenumber(0)),
		fmt.Sprintf("%.6g", g.Wavenumber(g.Len()-1)),
	}
}
