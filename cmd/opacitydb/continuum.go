package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opacitydb/internal/factory"
	"opacitydb/internal/store"
)

func newContinuumCommand(ctx *commandContext) *cobra.Command {
	var (
		pairs     []string
		overwrite bool
		file      string
	)

	cmd := &cobra.Command{
		Use:   "continuum",
		Short: "Insert collision-induced absorption pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(file)
			if path == "" {
				path = cfg.Auxiliary.ContinuumFile
			}
			if path == "" {
				return errors.New("no continuum table configured (set auxiliary.continuum_file or pass --file)")
			}
			if !cmd.Flags().Changed("pairs") {
				pairs = cfg.Auxiliary.ContinuumPairs
			}
			if !cmd.Flags().Changed("overwrite") {
				overwrite = cfg.Auxiliary.ContinuumOverwrite
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				runID, err := st.BeginRun(cmd.Context(), "continuum")
				if err != nil {
					return err
				}
				builder, err := newConfiguredBuilder(cfg, st, runID, logger)
				if err != nil {
					return err
				}
				inserted, err := builder.BuildContinuum(cmd.Context(), path, factory.ContinuumOptions{
					Pairs:     pairs,
					Overwrite: overwrite,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d continuum pairs: %s\n", len(inserted), strings.Join(inserted, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&pairs, "pairs", nil, "Pairs to insert (defaults to auxiliary.continuum_pairs, empty means all)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace pairs that are already stored")
	cmd.Flags().StringVar(&file, "file", "", "Continuum table (defaults to auxiliary.continuum_file)")
	return cmd
}
