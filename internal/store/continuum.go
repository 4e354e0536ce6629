package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"opacitydb/internal/faults"
	"opacitydb/internal/opacity"
	"opacitydb/internal/spectral"
)

// InsertContinuum writes every pair of table. Pairs already stored fail with
// ErrDuplicateEntry unless opts.Overwrite is set. All pairs commit together.
func (s *Store) InsertContinuum(ctx context.Context, table *opacity.ContinuumTable, opts InsertOptions) error {
	if table == nil || table.Grid == nil {
		return errors.New("continuum table has no grid")
	}
	pairs := table.Pairs()
	if len(pairs) == 0 {
		return faults.Wrap(faults.ErrMissingData, "store", "insert continuum", "no collision pairs", nil)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		gridID, err := ensureGrid(ctx, tx, table.Grid)
		if err != nil {
			return err
		}
		written := 0
		for _, pair := range pairs {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM continuum_pairs WHERE pair = ?", pair).Scan(&exists); err != nil {
				return fmt.Errorf("check pair: %w", err)
			}
			if exists > 0 {
				if !opts.Overwrite {
					return faults.Wrap(faults.ErrDuplicateEntry, "store", "insert continuum",
						fmt.Sprintf("pair %s already present (overwrite not requested)", pair), nil)
				}
				if _, err := tx.ExecContext(ctx, "DELETE FROM continuum WHERE pair = ?", pair); err != nil {
					return fmt.Errorf("clear pair rows: %w", err)
				}
				if _, err := tx.ExecContext(ctx, "DELETE FROM continuum_pairs WHERE pair = ?", pair); err != nil {
					return fmt.Errorf("clear pair: %w", err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO continuum_pairs (pair, grid_id, source, run_id, inserted_at) VALUES (?, ?, ?, ?, ?)`,
				pair, gridID, nullableString(opts.Source), nullableString(opts.RunID), now(),
			); err != nil {
				return fmt.Errorf("insert pair: %w", err)
			}
			for _, temp := range table.Temperatures(pair) {
				values, _ := table.Get(pair, temp)
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO continuum (pair, temperature, coefficients) VALUES (?, ?, ?)`,
					pair, temp, encodeFloats(values),
				); err != nil {
					return fmt.Errorf("insert %s T=%gK: %w", pair, temp, err)
				}
				written++
				if s.afterRow != nil {
					if err := s.afterRow(written); err != nil {
						return faults.Wrap(faults.ErrIntegrity, "store", "insert continuum", pair, err)
					}
				}
			}
		}
		return nil
	})
}

// QueryContinuum returns the coefficients of pair at the requested
// temperatures, or at every stored temperature when none are given.
func (s *Store) QueryContinuum(ctx context.Context, pair string, temperatures []float64) (*opacity.ContinuumTable, error) {
	ctx = ensureContext(ctx)
	var gridID int64
	err := s.db.QueryRowContext(ctx, "SELECT grid_id FROM continuum_pairs WHERE pair = ?", pair).Scan(&gridID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound, "store", "query continuum", fmt.Sprintf("pair %s not in database", pair), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup pair: %w", err)
	}
	grid, err := loadGrid(ctx, s.db, gridID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT temperature, coefficients FROM continuum WHERE pair = ? ORDER BY temperature", pair)
	if err != nil {
		return nil, fmt.Errorf("read pair: %w", err)
	}
	defer rows.Close()

	stored := opacity.NewContinuumTable(grid)
	for rows.Next() {
		var (
			temp float64
			blob []byte
		)
		if err := rows.Scan(&temp, &blob); err != nil {
			return nil, fmt.Errorf("scan continuum: %w", err)
		}
		values, err := decodeFloats(blob, grid.Len())
		if err != nil {
			return nil, err
		}
		if err := stored.Set(pair, temp, values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(temperatures) == 0 {
		return stored, nil
	}

	out := opacity.NewContinuumTable(grid)
	for _, temp := range temperatures {
		values, ok := stored.Get(pair, temp)
		if !ok {
			return nil, faults.Wrap(faults.ErrNotFound, "store", "query continuum",
				fmt.Sprintf("pair %s has no entry for T=%gK", pair, temp), nil)
		}
		if err := out.Set(pair, temp, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PairInfo summarises a stored collision pair.
type PairInfo struct {
	Pair         string
	Source       string
	RunID        string
	InsertedAt   time.Time
	Temperatures int
	Grid         GridInfo
}

// ListContinuum returns every stored collision pair ordered by name.
func (s *Store) ListContinuum(ctx context.Context) ([]PairInfo, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT p.pair, COALESCE(p.source, ''), COALESCE(p.run_id, ''), p.inserted_at,
               (SELECT COUNT(1) FROM continuum c WHERE c.pair = p.pair),
               g.id, g.mode, g.resolution, g.min_wavelength, g.max_wavelength, g.stride, g.npoints
        FROM continuum_pairs p JOIN grids g ON g.id = p.grid_id
        ORDER BY p.pair`)
	if err != nil {
		return nil, fmt.Errorf("list continuum: %w", err)
	}
	defer rows.Close()

	var out []PairInfo
	for rows.Next() {
		var (
			info     PairInfo
			inserted string
			mode     string
		)
		if err := rows.Scan(&info.Pair, &info.Source, &info.RunID, &inserted, &info.Temperatures,
			&info.Grid.ID, &mode, &info.Grid.Resolution, &info.Grid.MinWavelength, &info.Grid.MaxWavelength,
			&info.Grid.Stride, &info.Grid.Points); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		info.Grid.Mode = spectral.Mode(mode)
		info.InsertedAt = parseTime(inserted)
		out = append(out, info)
	}
	return out, rows.Err()
}
