package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"opacitydb/internal/faults"
	"opacitydb/internal/logging"
	"opacitydb/internal/merge"
	"opacitydb/internal/opacity"
	"opacitydb/internal/resample"
	"opacitydb/internal/sources"
	"opacitydb/internal/spectral"
	"opacitydb/internal/store"
)

// OnExisting selects what happens when a species is already stored.
type OnExisting string

const (
	OnExistingFail      OnExisting = "fail"
	OnExistingSkip      OnExisting = "skip"
	OnExistingOverwrite OnExisting = "overwrite"
)

// ParseOnExisting validates a collision policy name. Empty means fail.
func ParseOnExisting(value string) (OnExisting, error) {
	switch OnExisting(value) {
	case "", OnExistingFail:
		return OnExistingFail, nil
	case OnExistingSkip, OnExistingOverwrite:
		return OnExisting(value), nil
	default:
		return "", fmt.Errorf("on_existing must be fail, skip or overwrite, got %q", value)
	}
}

// Sink is the subset of the store the pipeline writes to.
type Sink interface {
	HasSpecies(ctx context.Context, name string) (bool, error)
	InsertSpecies(ctx context.Context, table *opacity.CrossSectionTable, opts store.InsertOptions) error
	InsertContinuum(ctx context.Context, table *opacity.ContinuumTable, opts store.InsertOptions) error
}

// Settings are the grid and batch parameters of a build.
type Settings struct {
	MinWavelength float64
	MaxWavelength float64
	OldR          float64
	NewR          float64
	OnExisting    OnExisting
	Workers       int
	RunID         string
}

// Builder turns raw source files into stored cross-section tables.
type Builder struct {
	sink     Sink
	locator  sources.Locator
	settings Settings
	patches  []*merge.Patch
	logger   *slog.Logger

	gridOnce  sync.Once
	canonical *spectral.Grid
	target    *spectral.Grid
	gridErr   error
}

// Option customizes a Builder.
type Option func(*Builder)

// WithPatches registers patches applied to every matching species.
func WithPatches(patches ...*merge.Patch) Option {
	return func(b *Builder) { b.patches = append(b.patches, patches...) }
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder validates settings and returns a Builder writing to sink.
func NewBuilder(sink Sink, locator sources.Locator, settings Settings, opts ...Option) (*Builder, error) {
	if sink == nil {
		return nil, errors.New("builder requires a sink")
	}
	if settings.NewR > settings.OldR {
		return nil, faults.Wrap(faults.ErrInvalidRange, "factory", "settings",
			fmt.Sprintf("new_r %g exceeds old_r %g", settings.NewR, settings.OldR), nil)
	}
	if settings.OnExisting == "" {
		settings.OnExisting = OnExistingFail
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	b := &Builder{sink: sink, locator: locator, settings: settings}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "factory")
	return b, nil
}

// Grids returns the canonical grid at OldR and the target grid at NewR. Both
// are built once and shared by every species.
func (b *Builder) Grids() (canonical, target *spectral.Grid, err error) {
	b.gridOnce.Do(func() {
		b.canonical, b.gridErr = spectral.NewConstantR(b.settings.MinWavelength, b.settings.MaxWavelength, b.settings.OldR)
		if b.gridErr != nil {
			return
		}
		b.target, b.gridErr = b.canonical.Decimate(b.settings.NewR)
		if b.gridErr != nil {
			return
		}
		if resample.AliasingRisk(b.settings.OldR, b.settings.NewR) {
			logging.WarnWithContext(b.logger, "target resolution is close to the source resolution",
				"aliasing_risk",
				logging.Float64("old_r", b.settings.OldR),
				logging.Float64("new_r", b.settings.NewR),
				logging.String(logging.FieldImpact, "decimated cross sections may alias narrow lines"),
				logging.String(logging.FieldErrorHint, fmt.Sprintf("keep new_r at or below old_r/%d", resample.SafeStride)),
			)
		}
	})
	return b.canonical, b.target, b.gridErr
}

// Prepare reads species from the source root and returns the finished table
// on the target grid with patches applied. Nothing is written.
func (b *Builder) Prepare(ctx context.Context, species opacity.Species) (*opacity.CrossSectionTable, error) {
	canonical, target, err := b.Grids()
	if err != nil {
		return nil, err
	}
	records, err := b.locator.Load(ctx, species)
	if err != nil {
		return nil, err
	}

	table := opacity.NewCrossSectionTable(species.Name, target)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dense, err := resample.Interpolate(rec.Wavenumbers, rec.CrossSections, canonical)
		if err != nil {
			return nil, fmt.Errorf("%s %s from %s: %w", species.Name,
				opacity.PT{Pressure: rec.Pressure, Temperature: rec.Temperature}, rec.Source, err)
		}
		values, grid, err := resample.Resample(dense, canonical, b.settings.NewR)
		if err != nil {
			return nil, err
		}
		if !grid.Equal(target) {
			return nil, faults.Wrap(faults.ErrIntegrity, "factory", "resample",
				fmt.Sprintf("%s resampled onto %s, want %s", species.Name, grid, target), nil)
		}
		if err := table.Set(opacity.PT{Pressure: rec.Pressure, Temperature: rec.Temperature}, values); err != nil {
			return nil, err
		}
	}

	patched, applied := merge.Apply(table, b.patches...)
	for _, a := range applied {
		b.logger.Debug("patch applied",
			logging.String(logging.FieldSpecies, species.Name),
			logging.String("patch", a.Patch),
			logging.Int("cells", a.Cells),
			logging.Int("bins", a.Bins),
		)
	}
	return patched, nil
}

// Outcome is the result of building one species.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result records what happened to one species.
type Result struct {
	Species  string
	Outcome  Outcome
	Entries  int
	Points   int
	Duration time.Duration
	Err      error
}

// Build runs the full pipeline for one species and inserts the result.
func (b *Builder) Build(ctx context.Context, species opacity.Species) Result {
	started := time.Now()
	ctx = logging.WithRunID(logging.WithSpecies(ctx, species.Name), b.settings.RunID)
	logger := logging.WithContext(ctx, b.logger)
	result := Result{Species: species.Name}
	finish := func(outcome Outcome, err error) Result {
		result.Outcome = outcome
		result.Err = err
		result.Duration = time.Since(started)
		return result
	}

	if b.settings.OnExisting == OnExistingSkip {
		exists, err := b.sink.HasSpecies(ctx, species.Name)
		if err != nil {
			return finish(OutcomeFailed, err)
		}
		if exists {
			logger.Info("species already stored; skipping",
				logging.String(logging.FieldEventType, "species_skipped"))
			return finish(OutcomeSkipped, nil)
		}
	}

	table, err := b.Prepare(ctx, species)
	if err != nil {
		return finish(OutcomeFailed, err)
	}
	result.Entries = table.Len()
	result.Points = table.Grid.Len()

	err = b.sink.InsertSpecies(ctx, table, store.InsertOptions{
		Overwrite: b.settings.OnExisting == OnExistingOverwrite,
		RunID:     b.settings.RunID,
		Source:    b.locator.Root,
	})
	if err != nil {
		return finish(OutcomeFailed, err)
	}
	logger.Info("species inserted",
		logging.String(logging.FieldEventType, "species_inserted"),
		logging.Int("entries", result.Entries),
		logging.Int("points", result.Points),
		logging.Duration("duration", time.Since(started)),
	)
	return finish(OutcomeInserted, nil)
}
