package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"opacitydb/internal/config"
	"opacitydb/internal/factory"
	"opacitydb/internal/faults"
	"opacitydb/internal/logging"
	"opacitydb/internal/preflight"
	"opacitydb/internal/store"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		species    []string
		onExisting string
		workers    int
		note       string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build species cross sections into the database",
		Long: "Interpolates every requested species onto the canonical grid, resamples it to the\n" +
			"target resolution, applies configured patches and inserts the result.\n" +
			"Species default to build.species from the configuration.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("on-existing") {
				cfg.Build.OnExisting = strings.ToLower(strings.TrimSpace(onExisting))
			}
			if cmd.Flags().Changed("workers") {
				cfg.Build.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := preflight.Failures(preflight.RunAll(cfg)); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				runID, err := st.BeginRun(cmd.Context(), note)
				if err != nil {
					return err
				}
				builder, err := newConfiguredBuilder(cfg, st, runID, logger)
				if err != nil {
					return err
				}
				logger.Info("build started",
					logging.String(logging.FieldRunID, runID),
					logging.String(logging.FieldEventType, "build_started"),
				)
				report, err := builder.BuildAll(cmd.Context(), factory.SpeciesFromConfig(cfg, species))
				if len(report.Results) == 0 {
					return err
				}
				if werr := writeReport(cmd, report); werr != nil {
					return werr
				}
				if failed := report.Failed(); len(failed) > 0 {
					return fmt.Errorf("%d of %d species failed: %w", len(failed), len(report.Results), err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&species, "species", "s", nil, "Species to build (defaults to build.species)")
	cmd.Flags().StringVar(&onExisting, "on-existing", "", "Policy for stored species: fail, skip or overwrite")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Species built concurrently")
	cmd.Flags().StringVar(&note, "note", "", "Note recorded with the build run")
	return cmd
}

func newConfiguredBuilder(cfg *config.Config, st *store.Store, runID string, logger *slog.Logger) (*factory.Builder, error) {
	settings, err := factory.SettingsFromConfig(cfg, runID)
	if err != nil {
		return nil, err
	}
	locator, err := factory.LocatorFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	patches, err := factory.LoadPatches(cfg.Auxiliary.Patches)
	if err != nil {
		return nil, err
	}
	return factory.NewBuilder(st, locator, settings,
		factory.WithPatches(patches...),
		factory.WithLogger(logger),
	)
}

func writeReport(cmd *cobra.Command, report factory.Report) error {
	headers := []string{"Species", "Outcome", "Entries", "Points", "Duration", "Error"}
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		detail := ""
		if res.Err != nil {
			detail = fmt.Sprintf("[%s] %v", faults.Kind(res.Err), res.Err)
		}
		rows = append(rows, []string{
			res.Species,
			string(res.Outcome),
			formatCount(res.Entries),
			formatCount(res.Points),
			formatDuration(res.Duration),
			detail,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	if err := writeRows(cmd.OutOrStdout(), headers, rows, aligns); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d, failed %d\n",
		len(report.Inserted()), len(report.Skipped()), len(report.Failed()))
	return err
}
