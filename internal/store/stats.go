package store

import (
	"context"
	"fmt"
	"os"
)

// Stats summarises the contents of a database file.
type Stats struct {
	Path          string
	SchemaVersion int
	SizeBytes     int64
	Runs          int
	Grids         int
	Species       int
	Entries       int
	Pairs         int
	Coefficients  int
}

// Stats counts the rows of every table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: s.path, SchemaVersion: schemaVersion}

	counts := []struct {
		table string
		dest  *int
	}{
		{"build_runs", &stats.Runs},
		{"grids", &stats.Grids},
		{"species", &stats.Species},
		{"molecular", &stats.Entries},
		{"continuum_pairs", &stats.Pairs},
		{"continuum", &stats.Coefficients},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+c.table).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}
