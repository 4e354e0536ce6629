package resample_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opacitydb/internal/faults"
	"opacitydb/internal/resample"
	"opacitydb/internal/spectral"
)

func explicitGrid(t *testing.T, nu []float64, r float64) *spectral.Grid {
	t.Helper()
	g, err := spectral.NewFromWavenumbers(nu, r)
	if err != nil {
		t.Fatalf("NewFromWavenumbers: %v", err)
	}
	return g
}

func TestInterpolateLinearWithZeroFill(t *testing.T) {
	grid := explicitGrid(t, []float64{1, 2, 2.5, 3, 4, 5}, 10)
	got, err := resample.Interpolate([]float64{2, 4}, []float64{10, 30}, grid)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	want := []float64{0, 10, 15, 20, 30, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestInterpolateAcceptsDescendingAndDuplicateSamples(t *testing.T) {
	grid := explicitGrid(t, []float64{1, 1.5, 2, 3}, 10)
	got, err := resample.Interpolate([]float64{3, 2, 2, 1}, []float64{3, 2, 99, 1}, grid)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	want := []float64{1, 1.5, 2, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestInterpolateRejectsBadInput(t *testing.T) {
	grid := explicitGrid(t, []float64{1, 2}, 10)
	cases := []struct {
		name   string
		nu, xs []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"single sample", []float64{1}, []float64{1}},
		{"repeated only", []float64{1, 1}, []float64{1, 2}},
		{"nan", []float64{1, math.NaN()}, []float64{1, 2}},
	}
	for _, tc := range cases {
		if _, err := resample.Interpolate(tc.nu, tc.xs, grid); !errors.Is(err, faults.ErrFormat) {
			t.Fatalf("%s: expected ErrFormat, got %v", tc.name, err)
		}
	}
}

func TestSeriesSpan(t *testing.T) {
	s, err := resample.NewSeries([]float64{5, 1, 3}, []float64{0, 0, 0})
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	lo, hi := s.Span()
	if lo != 1 || hi != 5 {
		t.Fatalf("unexpected span %g-%g", lo, hi)
	}
	if _, ok := s.At(6); ok {
		t.Fatal("expected point outside span to be uncovered")
	}
}
