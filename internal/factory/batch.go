package factory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"opacitydb/internal/faults"
	"opacitydb/internal/logging"
	"opacitydb/internal/opacity"
)

// Report summarises a batch build.
type Report struct {
	Results []Result
}

// Inserted returns the names of species that were written.
func (r Report) Inserted() []string { return r.names(OutcomeInserted) }

// Skipped returns the names of species left untouched because they were
// already stored.
func (r Report) Skipped() []string { return r.names(OutcomeSkipped) }

// Failed returns the names of species that could not be built.
func (r Report) Failed() []string { return r.names(OutcomeFailed) }

func (r Report) names(outcome Outcome) []string {
	var out []string
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res.Species)
		}
	}
	return out
}

// Err joins every per-species failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Species, res.Err))
		}
	}
	return errors.Join(errs...)
}

// BuildAll builds every species with at most Settings.Workers running at
// once. A failing species does not stop the others; cancelling ctx stops
// new species from starting. Results keep the order of the input list.
func (b *Builder) BuildAll(ctx context.Context, species []opacity.Species) (Report, error) {
	if len(species) == 0 {
		return Report{}, faults.Wrap(faults.ErrMissingData, "factory", "batch", "no species requested", nil)
	}
	seen := make(map[string]struct{}, len(species))
	for _, sp := range species {
		if _, dup := seen[sp.Name]; dup {
			return Report{}, faults.Wrap(faults.ErrInvalidRange, "factory", "batch",
				fmt.Sprintf("species %s listed twice", sp.Name), nil)
		}
		seen[sp.Name] = struct{}{}
	}
	if _, _, err := b.Grids(); err != nil {
		return Report{}, err
	}

	results := make([]Result, len(species))
	var g errgroup.Group
	g.SetLimit(b.settings.Workers)
	for i, sp := range species {
		if ctx.Err() != nil {
			results[i] = Result{Species: sp.Name, Outcome: OutcomeFailed, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Species: sp.Name, Outcome: OutcomeFailed, Err: err}
				return nil
			}
			results[i] = b.Build(ctx, sp)
			if res := results[i]; res.Err != nil {
				logging.ErrorWithContext(b.logger, "species build failed", "species_failed",
					logging.String(logging.FieldSpecies, res.Species),
					logging.String("kind", faults.Kind(res.Err)),
					logging.Error(res.Err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	b.logger.Info("batch build finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("inserted", len(report.Inserted())),
		logging.Int("skipped", len(report.Skipped())),
		logging.Int("failed", len(report.Failed())),
	)
	return report, report.Err()
}
