package factory

import (
	"context"

	"opacitydb/internal/logging"
	"opacitydb/internal/merge"
	"opacitydb/internal/sources"
	"opacitydb/internal/store"
)

// ContinuumOptions selects which collision pairs to insert and how.
type ContinuumOptions struct {
	Pairs     []string
	Overwrite bool
}

// BuildContinuum interpolates the continuum table at path onto the target
// grid and inserts the selected pairs.
func (b *Builder) BuildContinuum(ctx context.Context, path string, opts ContinuumOptions) ([]string, error) {
	_, target, err := b.Grids()
	if err != nil {
		return nil, err
	}
	src, err := sources.ReadContinuumTable(path)
	if err != nil {
		return nil, err
	}
	table, err := merge.Continuum(target, src, opts.Pairs)
	if err != nil {
		return nil, err
	}
	err = b.sink.InsertContinuum(ctx, table, store.InsertOptions{
		Overwrite: opts.Overwrite,
		RunID:     b.settings.RunID,
		Source:    path,
	})
	if err != nil {
		return nil, err
	}
	pairs := table.Pairs()
	b.logger.Info("continuum inserted",
		logging.String(logging.FieldEventType, "continuum_inserted"),
		logging.Int("pairs", len(pairs)),
		logging.Int("points", target.Len()),
	)
	return pairs, nil
}
