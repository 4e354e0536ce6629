package sources_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/sources"
)

func TestLocatorLoadsMoleculeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "H2O", "a.txt"), "1 300\n100 1\n200 2\n")
	writeFile(t, filepath.Join(root, "H2O", "b.txt"), "10 300\n100 3\n200 4\n")
	writeFile(t, filepath.Join(root, "H2O", ".hidden"), "garbage")

	loc := sources.Locator{Root: root, Alkali: sources.AlkaliSharedFolder}
	recs, err := loc.Load(context.Background(), opacity.NewSpecies("H2O", "columns"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Pressure != 1 || recs[1].Pressure != 10 {
		t.Fatalf("unexpected order %g %g", recs[0].Pressure, recs[1].Pressure)
	}
}

func TestLocatorMissingSpeciesIsHardFailure(t *testing.T) {
	loc := sources.Locator{Root: t.TempDir(), Alkali: sources.AlkaliSharedFolder}
	if _, err := loc.Load(context.Background(), opacity.NewSpecies("CO", "columns")); !errors.Is(err, faults.ErrMissingData) {
		t.Fatalf("expected ErrMissingData, got %v", err)
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "CO", ".keep"), "")
	loc.Root = root
	if _, err := loc.Discover(opacity.NewSpecies("CO", "columns")); !errors.Is(err, faults.ErrMissingData) {
		t.Fatalf("expected ErrMissingData for empty directory, got %v", err)
	}
}

func TestLocatorAlkaliConventions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alkalis", "Na.csv"),
		"pressure,temperature,wavenumber,cross_section\n1,1000,100,1\n1,1000,200,2\n")
	writeFile(t, filepath.Join(root, "alkalis", "K", "K_1bar_1000K.txt"), "100 1\n200 2\n")

	individual := sources.Locator{Root: root, Alkali: sources.AlkaliIndividualFile}
	plan, err := individual.Discover(opacity.NewSpecies("Na", "named"))
	if err != nil {
		t.Fatalf("Discover Na: %v", err)
	}
	if plan.Format != sources.FormatConsolidated || len(plan.Files) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if _, err := individual.Discover(opacity.NewSpecies("K", "named")); !errors.Is(err, faults.ErrMissingData) {
		t.Fatalf("expected ErrMissingData for K without individual file, got %v", err)
	}

	shared := sources.Locator{Root: root, Alkali: sources.AlkaliSharedFolder}
	recs, err := shared.Load(context.Background(), opacity.NewSpecies("K", "named"))
	if err != nil {
		t.Fatalf("Load K: %v", err)
	}
	if len(recs) != 1 || recs[0].Temperature != 1000 {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestLocatorRejectsDuplicatePT(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "CO2", "a.txt"), "1 300\n100 1\n200 2\n")
	writeFile(t, filepath.Join(root, "CO2", "b.txt"), "1 300\n100 1\n200 2\n")
	loc := sources.Locator{Root: root}
	if _, err := loc.Load(context.Background(), opacity.NewSpecies("CO2", "columns")); !errors.Is(err, faults.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestLocatorRejectsNearDuplicatePT(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "CO2", "a.txt"), "1 300\n100 1\n200 2\n")
	writeFile(t, filepath.Join(root, "CO2", "b.txt"), "1.0000001 300\n100 1\n200 2\n")
	loc := sources.Locator{Root: root}
	if _, err := loc.Load(context.Background(), opacity.NewSpecies("CO2", "columns")); !errors.Is(err, faults.ErrFormat) {
		t.Fatalf("expected ErrFormat for points within key tolerance, got %v", err)
	}
}

func TestParseAlkaliSource(t *testing.T) {
	if v, err := sources.ParseAlkaliSource("INDIVIDUAL_FILE"); err != nil || v != sources.AlkaliIndividualFile {
		t.Fatalf("ParseAlkaliSource: %v %v", v, err)
	}
	if _, err := sources.ParseAlkaliSource("zip"); err == nil {
		t.Fatal("expected error for unknown convention")
	}
}
