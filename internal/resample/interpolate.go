package resample

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

// Series is a native spectrum prepared for interpolation.
type Series struct {
	lo, hi float64
	fit    interp.PiecewiseLinear
}

// NewSeries sorts samples by wavenumber, drops repeated wavenumbers (the
// first occurrence wins) and fits a piecewise-linear interpolant.
func NewSeries(wavenumbers, values []float64) (*Series, error) {
	if len(wavenumbers) != len(values) {
		return nil, faults.Wrap(faults.ErrFormat, "interpolate", "series",
			fmt.Sprintf("%d wavenumbers but %d values", len(wavenumbers), len(values)), nil)
	}
	order := make([]int, len(wavenumbers))
	for i := range order {
		if !finite(wavenumbers[i]) || !finite(values[i]) {
			return nil, faults.Wrap(faults.ErrFormat, "interpolate", "series",
				fmt.Sprintf("non-finite sample at index %d", i), nil)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return wavenumbers[order[a]] < wavenumbers[order[b]]
	})

	xs := make([]float64, 0, len(order))
	ys := make([]float64, 0, len(order))
	for _, idx := range order {
		if n := len(xs); n > 0 && xs[n-1] == wavenumbers[idx] {
			continue
		}
		xs = append(xs, wavenumbers[idx])
		ys = append(ys, values[idx])
	}
	if len(xs) < 2 {
		return nil, faults.Wrap(faults.ErrFormat, "interpolate", "series",
			fmt.Sprintf("need at least 2 distinct wavenumbers, got %d", len(xs)), nil)
	}

	s := &Series{lo: xs[0], hi: xs[len(xs)-1]}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, faults.Wrap(faults.ErrFormat, "interpolate", "fit", "", err)
	}
	return s, nil
}

// Span returns the covered wavenumber interval.
func (s *Series) Span() (lo, hi float64) { return s.lo, s.hi }

// Covers reports whether nu lies inside the measured span.
func (s *Series) Covers(nu float64) bool { return nu >= s.lo && nu <= s.hi }

// At interpolates at nu; outside the span it reports false and zero.
func (s *Series) At(nu float64) (float64, bool) {
	if !s.Covers(nu) {
		return 0, false
	}
	return s.fit.Predict(nu), true
}

// OnGrid evaluates the series at every grid point with zero fill.
func (s *Series) OnGrid(grid *spectral.Grid) []float64 {
	out := make([]float64, grid.Len())
	for i := range out {
		out[i], _ = s.At(grid.Wavenumber(i))
	}
	return out
}

// Interpolate maps native (wavenumber, value) samples onto grid. Grid points
// outside the native span are zero: missing data means negligible opacity.
func Interpolate(wavenumbers, values []float64, grid *spectral.Grid) ([]float64, error) {
	s, err := NewSeries(wavenumbers, values)
	if err != nil {
		return nil, err
	}
	return s.OnGrid(grid), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
