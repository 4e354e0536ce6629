package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/spectral"
)

func TestInsertFailureLeavesNoPartialRecord(t *testing.T) {
	ctx := context.Background()
	st, err := CreateSkeleton(ctx, filepath.Join(t.TempDir(), "opacity.db"), false)
	if err != nil {
		t.Fatalf("CreateSkeleton: %v", err)
	}
	defer st.Close()

	grid, err := spectral.NewFromWavenumbers([]float64{1, 2, 3}, 10)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	table := opacity.NewCrossSectionTable("K", grid)
	for _, temp := range []float64{500, 1000, 1500} {
		if err := table.Set(opacity.PT{Pressure: 1, Temperature: temp}, []float64{1, 2, 3}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	boom := errors.New("disk full")
	st.afterRow = func(written int) error {
		if written == 2 {
			return boom
		}
		return nil
	}
	err = st.InsertSpecies(ctx, table, InsertOptions{})
	if !errors.Is(err, boom) || !errors.Is(err, faults.ErrIntegrity) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	st.afterRow = nil
	if has, err := st.HasSpecies(ctx, "K"); err != nil || has {
		t.Fatalf("expected no species after rollback, has=%v err=%v", has, err)
	}
	var rows int
	if err := st.db.QueryRow("SELECT COUNT(1) FROM molecular").Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 molecular rows, got %d", rows)
	}
	var grids int
	if err := st.db.QueryRow("SELECT COUNT(1) FROM grids").Scan(&grids); err != nil {
		t.Fatalf("count grids: %v", err)
	}
	if grids != 0 {
		t.Fatalf("expected grid insert rolled back, got %d", grids)
	}

	if err := st.InsertSpecies(ctx, table, InsertOptions{}); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestEncodeDecodeFloatsRejectsWrongLength(t *testing.T) {
	blob := encodeFloats([]float64{1, 2, 3})
	if _, err := decodeFloats(blob, 4); !errors.Is(err, faults.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	got, err := decodeFloats(blob, 3)
	if err != nil || got[2] != 3 {
		t.Fatalf("decode = %v, %v", got, err)
	}
}
