package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"opacitydb/internal/faults"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in schema_version by CreateSkeleton. Bump it
// whenever schema.sql changes; older files must be rebuilt.
const schemaVersion = 1

// ErrSchemaMismatch reports a file that is not an opacity database of the
// current schema version.
var ErrSchemaMismatch = faults.ErrSchemaMismatch

func (s *Store) checkSchema(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s has an empty schema_version table", ErrSchemaMismatch, s.path)
	default:
		// A foreign SQLite file has no schema_version table at all.
		var tables int
		if qerr := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
		).Scan(&tables); qerr == nil && tables == 0 {
			return fmt.Errorf("%w: %s is not an opacity database (create one with 'opacitydb init')", ErrSchemaMismatch, s.path)
		}
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s is version %d, this build reads version %d",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

// createSchema applies schema.sql and stamps the version in one transaction.
// The caller already holds the file lock, so this bypasses withTx.
func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return tx.Commit()
}
