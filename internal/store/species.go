package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/spectral"
)

// InsertOptions controls collision handling and provenance for an insertion.
type InsertOptions struct {
	// Overwrite replaces an existing record instead of failing with
	// ErrDuplicateEntry.
	Overwrite bool
	// RunID ties the record to a build run created with BeginRun.
	RunID string
	// Source is a free-form provenance note (e.g. the source directory).
	Source string
}

// InsertSpecies writes table as the record for table.Species. The whole
// record commits or nothing does.
func (s *Store) InsertSpecies(ctx context.Context, table *opacity.CrossSectionTable, opts InsertOptions) error {
	if table == nil {
		return errors.New("table is nil")
	}
	if err := table.Validate(); err != nil {
		return err
	}
	if table.Len() == 0 {
		return faults.Wrap(faults.ErrMissingData, "store", "insert species", fmt.Sprintf("%s has no entries", table.Species), nil)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM species WHERE name = ?", table.Species).Scan(&exists); err != nil {
			return fmt.Errorf("check species: %w", err)
		}
		if exists > 0 {
			if !opts.Overwrite {
				return faults.Wrap(faults.ErrDuplicateEntry, "store", "insert species",
					fmt.Sprintf("%s already present (overwrite not requested)", table.Species), nil)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM molecular WHERE species = ?", table.Species); err != nil {
				return fmt.Errorf("clear species rows: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM species WHERE name = ?", table.Species); err != nil {
				return fmt.Errorf("clear species: %w", err)
			}
		}

		gridID, err := ensureGrid(ctx, tx, table.Grid)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO species (name, grid_id, source, run_id, inserted_at) VALUES (?, ?, ?, ?, ?)`,
			table.Species, gridID, nullableString(opts.Source), nullableString(opts.RunID), now(),
		); err != nil {
			return fmt.Errorf("insert species: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO molecular (species, pressure, temperature, cross_sections) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare molecular insert: %w", err)
		}
		defer stmt.Close()

		for i, key := range table.Keys() {
			if err := ctx.Err(); err != nil {
				return err
			}
			values, _ := table.Get(key)
			if _, err := stmt.ExecContext(ctx, table.Species, key.Pressure, key.Temperature, encodeFloats(values)); err != nil {
				return fmt.Errorf("insert %s %s: %w", table.Species, key, err)
			}
			if s.afterRow != nil {
				if err := s.afterRow(i + 1); err != nil {
					return faults.Wrap(faults.ErrIntegrity, "store", "insert species", table.Species, err)
				}
			}
		}
		return nil
	})
}

// HasSpecies reports whether a record exists for name.
func (s *Store) HasSpecies(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM species WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check species: %w", err)
	}
	return count > 0, nil
}

// QueryMolecular returns the entries for every combination of the requested
// pressures and temperatures. An empty axis selects every stored value on
// that axis. Any absent species or combination fails with ErrNotFound.
func (s *Store) QueryMolecular(ctx context.Context, species string, pressures, temperatures []float64) (*opacity.CrossSectionTable, error) {
	ctx = ensureContext(ctx)
	var gridID int64
	err := s.db.QueryRowContext(ctx, "SELECT grid_id FROM species WHERE name = ?", species).Scan(&gridID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound, "store", "query", fmt.Sprintf("species %s not in database", species), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup species: %w", err)
	}
	grid, err := loadGrid(ctx, s.db, gridID)
	if err != nil {
		return nil, err
	}

	stored, err := s.storedKeys(ctx, species)
	if err != nil {
		return nil, err
	}
	wanted, err := selectKeys(species, stored, pressures, temperatures)
	if err != nil {
		return nil, err
	}

	table := opacity.NewCrossSectionTable(species, grid)
	for _, key := range wanted {
		var blob []byte
		err := s.db.QueryRowContext(ctx,
			"SELECT cross_sections FROM molecular WHERE species = ? AND pressure = ? AND temperature = ?",
			species, key.Pressure, key.Temperature,
		).Scan(&blob)
		if err != nil {
			return nil, fmt.Errorf("read %s %s: %w", species, key, err)
		}
		values, err := decodeFloats(blob, grid.Len())
		if err != nil {
			return nil, err
		}
		if err := table.Set(key, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (s *Store) storedKeys(ctx context.Context, species string) ([]opacity.PT, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pressure, temperature FROM molecular WHERE species = ? ORDER BY pressure, temperature", species)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []opacity.PT
	for rows.Next() {
		var key opacity.PT
		if err := rows.Scan(&key.Pressure, &key.Temperature); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// selectKeys matches the requested P×T product against stored keys.
func selectKeys(species string, stored []opacity.PT, pressures, temperatures []float64) ([]opacity.PT, error) {
	if len(pressures) == 0 {
		pressures = distinct(stored, func(k opacity.PT) float64 { return k.Pressure })
	}
	if len(temperatures) == 0 {
		temperatures = distinct(stored, func(k opacity.PT) float64 { return k.Temperature })
	}

	var (
		out     []opacity.PT
		missing []string
	)
	for _, p := range pressures {
		for _, t := range temperatures {
			match, ok := findKey(stored, p, t)
			if !ok {
				missing = append(missing, opacity.PT{Pressure: p, Temperature: t}.String())
				continue
			}
			out = append(out, match)
		}
	}
	if len(missing) > 0 {
		return nil, faults.Wrap(faults.ErrNotFound, "store", "query",
			fmt.Sprintf("%s has no entry for %s", species, strings.Join(missing, ", ")), nil)
	}
	return out, nil
}

func findKey(stored []opacity.PT, p, t float64) (opacity.PT, bool) {
	for _, key := range stored {
		if opacity.SameValue(key.Pressure, p) && opacity.SameValue(key.Temperature, t) {
			return key, true
		}
	}
	return opacity.PT{}, false
}

func distinct(keys []opacity.PT, axis func(opacity.PT) float64) []float64 {
	var out []float64
	seen := make(map[float64]struct{})
	for _, k := range keys {
		v := axis(k)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SpeciesInfo summarises a stored species record.
type SpeciesInfo struct {
	Name       string
	Source     string
	RunID      string
	InsertedAt time.Time
	Entries    int
	Grid       GridInfo
}

// ListSpecies returns every stored species ordered by name.
func (s *Store) ListSpecies(ctx context.Context) ([]SpeciesInfo, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT s.name, COALESCE(s.source, ''), COALESCE(s.run_id, ''), s.inserted_at,
               (SELECT COUNT(1) FROM molecular m WHERE m.species = s.name),
               g.id, g.mode, g.resolution, g.min_wavelength, g.max_wavelength, g.stride, g.npoints
        FROM species s JOIN grids g ON g.id = s.grid_id
        ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer rows.Close()

	var out []SpeciesInfo
	for rows.Next() {
		var (
			info     SpeciesInfo
			inserted string
			mode     string
		)
		if err := rows.Scan(&info.Name, &info.Source, &info.RunID, &inserted, &info.Entries,
			&info.Grid.ID, &mode, &info.Grid.Resolution, &info.Grid.MinWavelength, &info.Grid.MaxWavelength,
			&info.Grid.Stride, &info.Grid.Points); err != nil {
			return nil, fmt.Errorf("scan species: %w", err)
		}
		info.Grid.Mode = spectral.Mode(mode)
		info.InsertedAt = parseTime(inserted)
		out = append(out, info)
	}
	return out, rows.Err()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
