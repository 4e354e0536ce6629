package main

import (
	"github.com/spf13/cobra"

	"opacitydb/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise database contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				rows := [][]string{
					{"Path", stats.Path},
					{"Schema version", formatCount(stats.SchemaVersion)},
					{"Size", formatBytes(stats.SizeBytes)},
					{"Build runs", formatCount(stats.Runs)},
					{"Grids", formatCount(stats.Grids)},
					{"Species", formatCount(stats.Species)},
					{"Molecular entries", formatCount(stats.Entries)},
					{"Continuum pairs", formatCount(stats.Pairs)},
					{"Continuum entries", formatCount(stats.Coefficients)},
				}
				return writeRows(cmd.OutOrStdout(), []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
