package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opacitydb/internal/faults"
	"opacitydb/internal/spectral"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ensureGrid returns the id of grid, inserting it when no identical grid is
// stored yet.
func ensureGrid(ctx context.Context, tx *sql.Tx, grid *spectral.Grid) (int64, error) {
	digest := grid.Digest()
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM grids WHERE digest = ?", digest).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup grid: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO grids (digest, mode, resolution, min_wavelength, max_wavelength, stride, npoints, wavenumbers)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		digest,
		string(grid.Mode()),
		grid.Resolution(),
		grid.MinWavelength(),
		grid.MaxWavelength(),
		grid.Stride(),
		grid.Len(),
		encodeFloats(grid.Wavenumbers()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert grid: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GridInfo describes a stored grid without its points.
type GridInfo struct {
	ID            int64
	Mode          spectral.Mode
	Resolution    float64
	MinWavelength float64
	MaxWavelength float64
	Stride        int
	Points        int
}

func loadGrid(ctx context.Context, q queryer, id int64) (*spectral.Grid, error) {
	var (
		mode      string
		res       float64
		minWl     float64
		maxWl     float64
		stride    int
		npoints   int
		pointBlob []byte
	)
	err := q.QueryRowContext(ctx,
		`SELECT mode, resolution, min_wavelength, max_wavelength, stride, npoints, wavenumbers FROM grids WHERE id = ?`, id,
	).Scan(&mode, &res, &minWl, &maxWl, &stride, &npoints, &pointBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrIntegrity, "store", "grid", fmt.Sprintf("grid %d missing", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}
	points, err := decodeFloats(pointBlob, npoints)
	if err != nil {
		return nil, err
	}
	return spectral.Restore(points, res, minWl, maxWl, spectral.Mode(mode), stride)
}
