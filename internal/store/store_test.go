package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/spectral"
	"opacitydb/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opacity.db")
	st, err := store.CreateSkeleton(context.Background(), path, false)
	if err != nil {
		t.Fatalf("CreateSkeleton: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleTable(t *testing.T, species string, scale float64) *opacity.CrossSectionTable {
	t.Helper()
	grid, err := spectral.NewFromWavenumbers([]float64{4000, 5000, 6000, 7000}, 1e4)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	table := opacity.NewCrossSectionTable(species, grid)
	for _, p := range []float64{1e-3, 1} {
		for _, temp := range []float64{300, 1000} {
			values := []float64{p * scale, temp * scale, 1e-22 * scale, 0}
			if err := table.Set(opacity.PT{Pressure: p, Temperature: temp}, values); err != nil {
				t.Fatalf("set: %v", err)
			}
		}
	}
	return table
}

func TestCreateSkeletonRefusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opacity.db")
	st, err := store.CreateSkeleton(context.Background(), path, false)
	if err != nil {
		t.Fatalf("CreateSkeleton: %v", err)
	}
	_ = st.Close()

	if _, err := store.CreateSkeleton(context.Background(), path, false); !errors.Is(err, faults.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	st, err = store.CreateSkeleton(context.Background(), path, true)
	if err != nil {
		t.Fatalf("CreateSkeleton overwrite: %v", err)
	}
	defer st.Close()
	list, err := st.ListSpecies(context.Background())
	if err != nil {
		t.Fatalf("ListSpecies: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty database, got %d species", len(list))
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := store.Open(filepath.Join(t.TempDir(), "missing.db"))
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := store.Open(path)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if kind := faults.Kind(err); kind != "schema_mismatch" {
		t.Fatalf("Kind = %q, want schema_mismatch", kind)
	}
}

func TestInsertAndQueryRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	table := sampleTable(t, "H2O", 1)

	if err := st.InsertSpecies(ctx, table, store.InsertOptions{Source: "raw/H2O"}); err != nil {
		t.Fatalf("InsertSpecies: %v", err)
	}

	got, err := st.QueryMolecular(ctx, "H2O", []float64{1}, []float64{1000})
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", got.Len())
	}
	values, ok := got.Get(opacity.PT{Pressure: 1, Temperature: 1000})
	if !ok {
		t.Fatal("queried entry missing")
	}
	if diff := cmp.Diff([]float64{1, 1000, 1e-22, 0}, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !got.Grid.Equal(table.Grid) {
		t.Fatalf("grid mismatch: %s vs %s", got.Grid, table.Grid)
	}
}

func TestQueryEmptyAxesSelectsEverything(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.InsertSpecies(ctx, sampleTable(t, "CO", 1), store.InsertOptions{}); err != nil {
		t.Fatalf("InsertSpecies: %v", err)
	}
	got, err := st.QueryMolecular(ctx, "CO", nil, []float64{300})
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	want := []opacity.PT{{Pressure: 1e-3, Temperature: 300}, {Pressure: 1, Temperature: 300}}
	if diff := cmp.Diff(want, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryMissingSpeciesOrCombination(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.InsertSpecies(ctx, sampleTable(t, "CH4", 1), store.InsertOptions{}); err != nil {
		t.Fatalf("InsertSpecies: %v", err)
	}
	if _, err := st.QueryMolecular(ctx, "NH3", nil, nil); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for species, got %v", err)
	}
	if _, err := st.QueryMolecular(ctx, "CH4", []float64{10}, []float64{300}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for combination, got %v", err)
	}
}

func TestInsertDuplicateAndOverwrite(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.InsertSpecies(ctx, sampleTable(t, "H2O", 1), store.InsertOptions{}); err != nil {
		t.Fatalf("InsertSpecies: %v", err)
	}

	err := st.InsertSpecies(ctx, sampleTable(t, "H2O", 2), store.InsertOptions{})
	if !errors.Is(err, faults.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	got, err := st.QueryMolecular(ctx, "H2O", []float64{1}, []float64{300})
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	values, _ := got.Get(opacity.PT{Pressure: 1, Temperature: 300})
	if values[0] != 1 {
		t.Fatalf("rejected insert modified data: %v", values)
	}

	if err := st.InsertSpecies(ctx, sampleTable(t, "H2O", 2), store.InsertOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = st.QueryMolecular(ctx, "H2O", []float64{1}, []float64{300})
	if err != nil {
		t.Fatalf("QueryMolecular: %v", err)
	}
	values, _ = got.Get(opacity.PT{Pressure: 1, Temperature: 300})
	if values[0] != 2 {
		t.Fatalf("overwrite did not replace data: %v", values)
	}
}

func TestListSpeciesReportsGridAndRun(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	runID, err := st.BeginRun(ctx, "test build")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for _, name := range []string{"TiO", "CO2"} {
		if err := st.InsertSpecies(ctx, sampleTable(t, name, 1), store.InsertOptions{RunID: runID}); err != nil {
			t.Fatalf("InsertSpecies %s: %v", name, err)
		}
	}
	list, err := st.ListSpecies(ctx)
	if err != nil {
		t.Fatalf("ListSpecies: %v", err)
	}
	if len(list) != 2 || list[0].Name != "CO2" || list[1].Name != "TiO" {
		t.Fatalf("unexpected listing: %+v", list)
	}
	for _, info := range list {
		if info.Entries != 4 || info.Grid.Points != 4 || info.RunID != runID {
			t.Fatalf("unexpected info: %+v", info)
		}
	}
	if list[0].Grid.ID != list[1].Grid.ID {
		t.Fatalf("identical grids should be shared, got ids %d and %d", list[0].Grid.ID, list[1].Grid.ID)
	}
	if has, _ := st.HasSpecies(ctx, "TiO"); !has {
		t.Fatal("expected HasSpecies true")
	}
}

func TestContinuumRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	grid, err := spectral.NewFromWavenumbers([]float64{1000, 2000, 3000}, 1e3)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	table := opacity.NewContinuumTable(grid)
	for _, temp := range []float64{200, 400} {
		if err := table.Set("H2-H2", temp, []float64{temp, 2 * temp, 3 * temp}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := st.InsertContinuum(ctx, table, store.InsertOptions{}); err != nil {
		t.Fatalf("InsertContinuum: %v", err)
	}
	if err := st.InsertContinuum(ctx, table, store.InsertOptions{}); !errors.Is(err, faults.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	got, err := st.QueryContinuum(ctx, "H2-H2", []float64{400})
	if err != nil {
		t.Fatalf("QueryContinuum: %v", err)
	}
	values, ok := got.Get("H2-H2", 400)
	if !ok {
		t.Fatal("missing temperature")
	}
	if diff := cmp.Diff([]float64{400, 800, 1200}, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if _, err := st.QueryContinuum(ctx, "H2-He", nil); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	pairs, err := st.ListContinuum(ctx)
	if err != nil {
		t.Fatalf("ListContinuum: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Temperatures != 2 {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestStatsCountsRows(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if _, err := st.BeginRun(ctx, ""); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for _, name := range []string{"H2O", "CH4"} {
		if err := st.InsertSpecies(ctx, sampleTable(t, name, 1), store.InsertOptions{}); err != nil {
			t.Fatalf("InsertSpecies %s: %v", name, err)
		}
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := store.Stats{
		Path:          st.Path(),
		SchemaVersion: stats.SchemaVersion,
		SizeBytes:     stats.SizeBytes,
		Runs:          1,
		Grids:         1,
		Species:       2,
		Entries:       8,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if stats.SizeBytes == 0 {
		t.Fatal("expected non-zero file size")
	}
}
