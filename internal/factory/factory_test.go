package factory_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"opacitydb/internal/config"
	"opacitydb/internal/factory"
	"opacitydb/internal/faults"
	"opacitydb/internal/merge"
	"opacitydb/internal/opacity"
	"opacitydb/internal/resample"
	"opacitydb/internal/sources"
	"opacitydb/internal/store"
	"opacitydb/internal/testsupport"
)

func newBuilder(t *testing.T, cfg *config.Config, st *store.Store, policy factory.OnExisting, opts ...factory.Option) *factory.Builder {
	t.Helper()
	b, err := factory.NewBuilder(st, sources.Locator{Root: cfg.Paths.SourceRoot, Alkali: sources.AlkaliIndividualFile}, factory.Settings{
		MinWavelength: cfg.Grid.MinWavelength,
		MaxWavelength: cfg.Grid.MaxWavelength,
		OldR:          cfg.Grid.OldR,
		NewR:          cfg.Grid.NewR,
		OnExisting:    policy,
		Workers:       2,
	}, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// linear is sigma(nu) = 1e-25*nu, which piecewise-linear interpolation
// reproduces exactly inside the sampled span.
func linear(nu float64) float64 { return 1e-25 * nu }

func writeLinear(t *testing.T, cfg *config.Config, species string, pressure, temperature float64) {
	t.Helper()
	nu := []float64{1e4 / 3, 4000, 5500, 7500, 1e4}
	values := make([]float64, len(nu))
	for i, v := range nu {
		values[i] = linear(v) * temperature / 300
	}
	name := fmt.Sprintf("%s_%gbar_%gK.txt", species, pressure, temperature)
	testsupport.WriteColumns(t, cfg.Paths.SourceRoot, species, name, pressure, temperature, nu, values)
}

func TestBuildH2OEndToEndDecimatesByStride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithGrid(1, 3, 1e6, 1e4))
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "H2O", 1, 300)

	b := newBuilder(t, cfg, st, factory.OnExistingFail)
	res := b.Build(context.Background(), opacity.NewSpecies("H2O", "columns"))
	if res.Err != nil || res.Outcome != factory.OutcomeInserted {
		t.Fatalf("Build: outcome=%s err=%v", res.Outcome, res.Err)
	}

	got, err := st.QueryMolecular(context.Background(), "H2O", []float64{1}, []float64{300})
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	values, ok := got.Get(opacity.PT{Pressure: 1, Temperature: 300})
	if !ok {
		t.Fatal("entry missing")
	}

	canonical, target, err := b.Grids()
	if err != nil {
		t.Fatalf("Grids: %v", err)
	}
	stride := int(math.Round(1e6 / 1e4))
	if stride != 100 || target.Stride() != stride {
		t.Fatalf("unexpected stride %d (grid %d)", stride, target.Stride())
	}
	if want := (canonical.Len() + stride - 1) / stride; target.Len() != want || len(values) != want {
		t.Fatalf("expected %d points, grid has %d, values %d", want, target.Len(), len(values))
	}
	if !got.Grid.Equal(target) {
		t.Fatalf("stored grid %s differs from target %s", got.Grid, target)
	}

	lo := 1e4 / 3
	inside := 0
	for k, v := range values {
		nu := canonical.Wavenumber(k * stride)
		if nu != target.Wavenumber(k) {
			t.Fatalf("target point %d is not canonical point %d", k, k*stride)
		}
		want := 0.0
		if nu >= lo && nu <= 1e4 {
			want = linear(nu)
			inside++
		}
		if math.Abs(v-want) > 1e-9*math.Abs(want)+1e-300 {
			t.Fatalf("bin %d (nu=%g): got %g want %g", k, nu, v, want)
		}
	}
	if inside == 0 {
		t.Fatal("no bins inside the sampled span")
	}
}

func TestInterpolateThenResampleMatchesDirectSubsampling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "CO", 1, 300)

	b := newBuilder(t, cfg, st, factory.OnExistingFail)
	table, err := b.Prepare(context.Background(), opacity.NewSpecies("CO", "columns"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	_, target, _ := b.Grids()
	direct, err := resample.Interpolate([]float64{1e4 / 3, 4000, 5500, 7500, 1e4},
		[]float64{linear(1e4 / 3), linear(4000), linear(5500), linear(7500), linear(1e4)}, target)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	got, _ := table.Get(opacity.PT{Pressure: 1, Temperature: 300})
	for i := range direct {
		if math.Abs(got[i]-direct[i]) > 1e-12*math.Abs(direct[i]) {
			t.Fatalf("bin %d: pipeline %g, direct %g", i, got[i], direct[i])
		}
	}
}

func TestBuildCollisionPolicies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "CH4", 1, 300)
	species := opacity.NewSpecies("CH4", "columns")
	ctx := context.Background()

	if res := newBuilder(t, cfg, st, factory.OnExistingFail).Build(ctx, species); res.Err != nil {
		t.Fatalf("first build: %v", res.Err)
	}

	res := newBuilder(t, cfg, st, factory.OnExistingFail).Build(ctx, species)
	if !errors.Is(res.Err, faults.ErrDuplicateEntry) || res.Outcome != factory.OutcomeFailed {
		t.Fatalf("expected duplicate failure, got %s %v", res.Outcome, res.Err)
	}

	res = newBuilder(t, cfg, st, factory.OnExistingSkip).Build(ctx, species)
	if res.Err != nil || res.Outcome != factory.OutcomeSkipped {
		t.Fatalf("expected skip, got %s %v", res.Outcome, res.Err)
	}

	writeLinear(t, cfg, "CH4", 1, 600)
	res = newBuilder(t, cfg, st, factory.OnExistingOverwrite).Build(ctx, species)
	if res.Err != nil || res.Outcome != factory.OutcomeInserted || res.Entries != 2 {
		t.Fatalf("expected overwrite with 2 entries, got %+v", res)
	}
	got, err := st.QueryMolecular(ctx, "CH4", nil, nil)
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 entries after overwrite, got %d", got.Len())
	}
}

func TestBuildAllReportsPerSpeciesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "H2O", 1, 300)
	writeLinear(t, cfg, "CO2", 1, 300)
	testsupport.WriteConsolidated(t, cfg.Paths.SourceRoot, "Na", []testsupport.Row{
		{Pressure: 1, Temperature: 1000, Wavenumber: 4000, CrossSection: 1e-20},
		{Pressure: 1, Temperature: 1000, Wavenumber: 9000, CrossSection: 2e-20},
	})

	species := []opacity.Species{
		opacity.NewSpecies("H2O", "columns"),
		opacity.NewSpecies("NH3", "columns"),
		opacity.NewSpecies("Na", "columns"),
		opacity.NewSpecies("CO2", "columns"),
	}
	report, err := newBuilder(t, cfg, st, factory.OnExistingFail).BuildAll(context.Background(), species)
	if !errors.Is(err, faults.ErrMissingData) {
		t.Fatalf("expected joined missing data error, got %v", err)
	}
	if got := report.Inserted(); len(got) != 3 || got[0] != "H2O" || got[1] != "Na" || got[2] != "CO2" {
		t.Fatalf("unexpected inserted list %v", got)
	}
	if got := report.Failed(); len(got) != 1 || got[0] != "NH3" {
		t.Fatalf("unexpected failed list %v", got)
	}

	report, err = newBuilder(t, cfg, st, factory.OnExistingSkip).BuildAll(context.Background(), species[:1])
	if err != nil || len(report.Skipped()) != 1 {
		t.Fatalf("expected resumed build to skip, got %v %v", report, err)
	}
}

func TestBuildAllRejectsDuplicateSpecies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	sp := opacity.NewSpecies("H2O", "columns")
	_, err := newBuilder(t, cfg, st, factory.OnExistingFail).BuildAll(context.Background(), []opacity.Species{sp, sp})
	if !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBuildAppliesPatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "O3", 1, 300)

	patch, err := merge.StaticPatch("o3-visible", "O3", 0, merge.Window{MinWavelength: 1.5, MaxWavelength: 2},
		sources.Spectrum{Wavenumbers: []float64{4000, 8000}, Values: []float64{7, 7}})
	if err != nil {
		t.Fatalf("StaticPatch: %v", err)
	}
	b := newBuilder(t, cfg, st, factory.OnExistingFail, factory.WithPatches(patch))
	table, err := b.Prepare(context.Background(), opacity.NewSpecies("O3", "columns"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	values, _ := table.Get(opacity.PT{Pressure: 1, Temperature: 300})
	for i, v := range values {
		wl := table.Grid.Wavelength(i)
		inWindow := wl >= 1.5 && wl <= 2
		if inWindow && v != 7 {
			t.Fatalf("bin %d (%gμm) not patched: %g", i, wl, v)
		}
		if !inWindow && v == 7 {
			t.Fatalf("bin %d (%gμm) patched outside window", i, wl)
		}
	}
}

func TestBuildContinuum(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	path := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "cia.csv"), `temperature,wavenumber,H2-H2,H2-He
200,3000,1,2
200,11000,1,2
400,3000,3,4
400,11000,3,4
`)

	b := newBuilder(t, cfg, st, factory.OnExistingFail)
	pairs, err := b.BuildContinuum(context.Background(), path, factory.ContinuumOptions{Pairs: []string{"H2-He"}})
	if err != nil {
		t.Fatalf("BuildContinuum: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != "H2-He" {
		t.Fatalf("unexpected pairs %v", pairs)
	}
	got, err := st.QueryContinuum(context.Background(), "H2-He", []float64{400})
	if err != nil {
		t.Fatalf("QueryContinuum: %v", err)
	}
	values, _ := got.Get("H2-He", 400)
	for i, v := range values {
		if v != 4 {
			t.Fatalf("bin %d: got %g want 4", i, v)
		}
	}

	_, err = b.BuildContinuum(context.Background(), path, factory.ContinuumOptions{Pairs: []string{"N2-N2"}})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pair, got %v", err)
	}
}

func TestNewBuilderValidatesSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)

	_, err := factory.NewBuilder(st, sources.Locator{}, factory.Settings{MinWavelength: 1, MaxWavelength: 3, OldR: 10, NewR: 100})
	if !errors.Is(err, faults.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for upsampling, got %v", err)
	}
	if _, err := factory.NewBuilder(nil, sources.Locator{}, factory.Settings{OldR: 10, NewR: 1}); err == nil {
		t.Fatal("expected error for missing sink")
	}
	if _, err := factory.ParseOnExisting("merge"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
	if policy, err := factory.ParseOnExisting(""); err != nil || policy != factory.OnExistingFail {
		t.Fatalf("empty policy should mean fail, got %q %v", policy, err)
	}
}

func TestBuildAllContinuesPastMalformedPointCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustCreateStore(t, cfg)
	writeLinear(t, cfg, "H2O", 1, 300)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceRoot, "CO", "CO_1bar_300K.dat"), "1 300 1000 2000 1e15\n1 2\n")

	species := []opacity.Species{
		opacity.NewSpecies("CO", "uniform"),
		opacity.NewSpecies("H2O", "columns"),
	}
	report, err := newBuilder(t, cfg, st, factory.OnExistingFail).BuildAll(context.Background(), species)
	if !errors.Is(err, faults.ErrFormat) {
		t.Fatalf("expected joined format error, got %v", err)
	}
	if got := report.Failed(); len(got) != 1 || got[0] != "CO" {
		t.Fatalf("unexpected failed list %v", got)
	}
	if got := report.Inserted(); len(got) != 1 || got[0] != "H2O" {
		t.Fatalf("unexpected inserted list %v", got)
	}
}
