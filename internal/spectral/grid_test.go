package spectral_test

import (
	"errors"
	"math"
	"testing"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

func TestNewConstantRIsStrictlyIncreasing(t *testing.T) {
	cases := []struct {
		min, max, r float64
	}{
		{0.3, 1, 100},
		{1, 3, 10000},
		{0.5, 14, 2500},
		{5, 5.0001, 1e6},
	}
	for _, tc := range cases {
		g, err := spectral.NewConstantR(tc.min, tc.max, tc.r)
		if err != nil {
			t.Fatalf("NewConstantR(%g,%g,%g): %v", tc.min, tc.max, tc.r, err)
		}
		nu := g.Wavenumbers()
		for i := 1; i < len(nu); i++ {
			if nu[i] <= nu[i-1] {
				t.Fatalf("R=%g: wavenumbers not increasing at %d (%g <= %g)", tc.r, i, nu[i], nu[i-1])
			}
		}
		spacing := (2*tc.r + 1) / (2*tc.r - 1)
		want := int(math.Ceil(math.Log(tc.max/tc.min)/math.Log(spacing))) + 1
		if g.Len() != want {
			t.Fatalf("R=%g: expected %d points, got %d", tc.r, want, g.Len())
		}
		for i := 1; i < len(nu); i++ {
			ratio := nu[i] / nu[i-1]
			if math.Abs(ratio-spacing) > 1e-9 {
				t.Fatalf("R=%g: ratio %g at %d differs from spacing %g", tc.r, ratio, i, spacing)
			}
		}
	}
}

func TestNewConstantRMapsMinWavelengthToMaxWavenumber(t *testing.T) {
	g, err := spectral.NewConstantR(1, 3, 1000)
	if err != nil {
		t.Fatalf("NewConstantR: %v", err)
	}
	last := g.Wavenumber(g.Len() - 1)
	if math.Abs(last-1e4) > 1e-9 {
		t.Fatalf("expected highest wavenumber 1e4 cm^-1 for 1 μm, got %g", last)
	}
	first := g.Wavelength(0)
	if first < 3*(1-1e-12) || first > 3*(2001.0/1999.0) {
		t.Fatalf("expected longest wavelength within one step above 3 μm, got %g", first)
	}
	if g.MinWavelength() != 1 || g.MaxWavelength() != 3 {
		t.Fatalf("unexpected bounds %g-%g", g.MinWavelength(), g.MaxWavelength())
	}
}

func TestUnitConversionRoundTrip(t *testing.T) {
	for _, wl := range []float64{0.3, 1, 2.5, 14, 300} {
		nu := spectral.WavelengthToWavenumber(wl)
		if nu <= 0 {
			t.Fatalf("wavenumber for %g μm must be positive, got %g", wl, nu)
		}
		back := spectral.WavenumberToWavelength(nu)
		if math.Abs(back-wl) > 1e-12*wl {
			t.Fatalf("round trip %g -> %g -> %g", wl, nu, back)
		}
	}
	if spectral.WavelengthToWavenumber(1) <= spectral.WavelengthToWavenumber(2) {
		t.Fatal("shorter wavelength must map to larger wavenumber")
	}
}

func TestNewConstantRRejectsInvalidRange(t *testing.T) {
	cases := []struct {
		name          string
		min, max, res float64
	}{
		{"min equals max", 1, 1, 100},
		{"min above max", 3, 1, 100},
		{"zero resolution", 1, 3, 0},
		{"negative resolution", 1, 3, -5},
		{"degenerate resolution", 1, 3, 0.5},
		{"zero min", 0, 3, 100},
		{"nan", math.NaN(), 3, 100},
	}
	for _, tc := range cases {
		_, err := spectral.NewConstantR(tc.min, tc.max, tc.res)
		if !errors.Is(err, faults.ErrInvalidRange) {
			t.Fatalf("%s: expected ErrInvalidRange, got %v", tc.name, err)
		}
	}
}

func TestDecimateKeepsEveryStrideFromZero(t *testing.T) {
	g, err := spectral.NewConstantR(1, 1.01, 1e5)
	if err != nil {
		t.Fatalf("NewConstantR: %v", err)
	}
	coarse, err := g.Decimate(1e3)
	if err != nil {
		t.Fatalf("Decimate: %v", err)
	}
	if coarse.Stride() != 100 {
		t.Fatalf("expected stride 100, got %d", coarse.Stride())
	}
	if coarse.Resolution() != 1e3 || coarse.Mode() != spectral.ModeDecimated {
		t.Fatalf("unexpected coarse grid %s", coarse)
	}
	for i := 0; i < coarse.Len(); i++ {
		if coarse.Wavenumber(i) != g.Wavenumber(i*100) {
			t.Fatalf("point %d: got %g want %g", i, coarse.Wavenumber(i), g.Wavenumber(i*100))
		}
	}
	want := (g.Len() + 99) / 100
	if coarse.Len() != want {
		t.Fatalf("expected %d points, got %d", want, coarse.Len())
	}

	same, err := coarse.Decimate(1e3)
	if err != nil {
		t.Fatalf("Decimate same R: %v", err)
	}
	if same != coarse {
		t.Fatal("decimating to the same resolution must return the grid unchanged")
	}

	if _, err := coarse.Decimate(1e4); !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange when increasing resolution, got %v", err)
	}
}

func TestDecimateBy(t *testing.T) {
	g, err := spectral.NewFromWavenumbers([]float64{1, 2, 3, 4, 5, 6, 7}, 700)
	if err != nil {
		t.Fatalf("NewFromWavenumbers: %v", err)
	}
	d, err := g.DecimateBy(3)
	if err != nil {
		t.Fatalf("DecimateBy: %v", err)
	}
	got := d.Wavenumbers()
	want := []float64{1, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if d.Resolution() != 700.0/3 {
		t.Fatalf("unexpected resolution %g", d.Resolution())
	}
	if _, err := g.DecimateBy(0); !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for zero stride, got %v", err)
	}
}

func TestStrideForRounds(t *testing.T) {
	cases := []struct {
		old, new float64
		want     int
	}{
		{1e6, 1e4, 100},
		{1e6, 1e6, 1},
		{1000, 333, 3},
		{1000, 400, 3},
	}
	for _, tc := range cases {
		got, err := spectral.StrideFor(tc.old, tc.new)
		if err != nil {
			t.Fatalf("StrideFor(%g,%g): %v", tc.old, tc.new, err)
		}
		if got != tc.want {
			t.Fatalf("StrideFor(%g,%g) = %d, want %d", tc.old, tc.new, got, tc.want)
		}
	}
}

func TestNewFromWavenumbersValidates(t *testing.T) {
	if _, err := spectral.NewFromWavenumbers([]float64{1, 1}, 10); !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for repeated point, got %v", err)
	}
	if _, err := spectral.NewFromWavenumbers(nil, 10); !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty grid, got %v", err)
	}
	src := []float64{1000, 2000, 4000}
	g, err := spectral.NewFromWavenumbers(src, 10)
	if err != nil {
		t.Fatalf("NewFromWavenumbers: %v", err)
	}
	src[0] = 5
	if g.Wavenumber(0) != 1000 {
		t.Fatal("grid must not alias the caller's slice")
	}
	if g.MinWavelength() != 2.5 || g.MaxWavelength() != 10 {
		t.Fatalf("unexpected bounds %g-%g", g.MinWavelength(), g.MaxWavelength())
	}
}

func TestDigestDistinguishesGrids(t *testing.T) {
	a, _ := spectral.NewConstantR(1, 2, 100)
	b, _ := spectral.NewConstantR(1, 2, 100)
	c, _ := spectral.NewConstantR(1, 2, 101)
	if a.Digest() != b.Digest() || !a.Equal(b) {
		t.Fatal("identical grids must share a digest")
	}
	if a.Digest() == c.Digest() || a.Equal(c) {
		t.Fatal("different grids must not share a digest")
	}
}
