package merge_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"opacitydb/internal/faults"
	"opacitydb/internal/merge"
	"opacitydb/internal/sources"
)

func TestContinuumInterpolatesPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cia.csv")
	content := "temperature,wavenumber,H2-H2,H2-He\n" +
		"100,1000,1,10\n100,2000,2,20\n300,1000,3,30\n300,2000,4,40\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := sources.ReadContinuumTable(path)
	if err != nil {
		t.Fatalf("ReadContinuumTable: %v", err)
	}
	grid := linearGrid(t)

	table, err := merge.Continuum(grid, src, []string{"H2-He"})
	if err != nil {
		t.Fatalf("Continuum: %v", err)
	}
	if pairs := table.Pairs(); len(pairs) != 1 || pairs[0] != "H2-He" {
		t.Fatalf("unexpected pairs %v", pairs)
	}
	values, ok := table.Get("H2-He", 300)
	if !ok {
		t.Fatal("expected H2-He at 300K")
	}
	if values[0] != 30 || values[10] != 40 || values[5] != 35 {
		t.Fatalf("unexpected interpolation %v", values)
	}

	all, err := merge.Continuum(grid, src, nil)
	if err != nil {
		t.Fatalf("Continuum all: %v", err)
	}
	if len(all.Pairs()) != 2 {
		t.Fatalf("expected every pair, got %v", all.Pairs())
	}

	if _, err := merge.Continuum(grid, src, []string{"N2-N2"}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
