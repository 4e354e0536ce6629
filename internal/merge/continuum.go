package merge

import (
	"fmt"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/resample"
	"opacitydb/internal/sources"
	"opacitydb/internal/spectral"
)

// Continuum interpolates the requested collision pairs of src onto grid.
// An empty pairs list selects every pair in the table.
func Continuum(grid *spectral.Grid, src *sources.ContinuumSource, pairs []string) (*opacity.ContinuumTable, error) {
	if len(pairs) == 0 {
		pairs = src.Pairs()
	}
	known := make(map[string]struct{})
	for _, p := range src.Pairs() {
		known[p] = struct{}{}
	}

	table := opacity.NewContinuumTable(grid)
	for _, pair := range pairs {
		if _, ok := known[pair]; !ok {
			return nil, faults.Wrap(faults.ErrNotFound, "merge", "continuum",
				fmt.Sprintf("pair %q not in %s", pair, src.Path), nil)
		}
		for _, temp := range src.Temperatures(pair) {
			spectrum, _ := src.Spectrum(pair, temp)
			values, err := resample.Interpolate(spectrum.Wavenumbers, spectrum.Values, grid)
			if err != nil {
				return nil, fmt.Errorf("continuum %s T=%gK: %w", pair, temp, err)
			}
			if err := table.Set(pair, temp, values); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}
