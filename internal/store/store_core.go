package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"opacitydb/internal/faults"
)

// Store manages an opacity database file.
type Store struct {
	db   *sql.DB
	path string

	writeMu   sync.Mutex
	lock      *flock.Flock
	lockRetry time.Duration

	// afterRow runs after each row written inside an insertion transaction.
	afterRow func(written int) error
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultLockRetry        = 100 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// CreateSkeleton creates an empty database with the fixed schema at path. An
// existing non-empty file is refused with ErrAlreadyExists unless overwrite
// is set, in which case it is replaced.
func CreateSkeleton(ctx context.Context, path string, overwrite bool) (*Store, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	lock := flock.New(lockPath(path))
	if err := acquire(ctx, lock, defaultLockRetry); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("database path %s is a directory", path)
	case err == nil && info.Size() > 0:
		if !overwrite {
			return nil, faults.Wrap(faults.ErrAlreadyExists, "store", "skeleton",
				fmt.Sprintf("%s already exists (use overwrite to replace it)", path), nil)
		}
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("remove %s: %w", p, err)
			}
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat database: %w", err)
	}

	store, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := store.createSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Open connects to an existing skeleton database.
func Open(path string) (*Store, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, faults.Wrap(faults.ErrNotFound, "store", "open",
			fmt.Sprintf("database %s does not exist (create it with 'opacitydb init')", path), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database path %s is a directory", path)
	}

	store, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := store.checkSchema(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps per-connection pragmas in force for every query.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	return &Store{
		db:        db,
		path:      path,
		lock:      flock.New(lockPath(path)),
		lockRetry: defaultLockRetry,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func lockPath(path string) string { return path + ".lock" }

func acquire(ctx context.Context, lock *flock.Flock, retry time.Duration) error {
	ok, err := lock.TryLockContext(ctx, retry)
	if err != nil {
		return fmt.Errorf("acquire database lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("acquire database lock %s: not acquired", lock.Path())
	}
	return nil
}

// withWriteLock runs fn while holding exclusive write access to the database:
// a mutex for goroutines sharing this Store and a file lock for other processes.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := acquire(ctx, s.lock, s.lockRetry); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// withTx runs fn in a transaction under the write lock, retrying the whole
// transaction when SQLite reports the database busy.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return s.withWriteLock(ctx, func() error {
		return retryOnBusy(ctx, func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin tx: %w", err)
			}
			defer func() { _ = tx.Rollback() }()
			if err := fn(tx); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		})
	})
}
