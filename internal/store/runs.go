package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// BeginRun records a new build run and returns its identifier. Records
// inserted with that identifier can be traced back to the run.
func (s *Store) BeginRun(ctx context.Context, note string) (string, error) {
	id := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO build_runs (id, started_at, note) VALUES (?, ?, ?)",
			id, now(), nullableString(note))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("record build run: %w", err)
	}
	return id, nil
}
