package testsupport

import (
	"context"
	"testing"

	"opacitydb/internal/config"
	"opacitydb/internal/store"
)

// MustCreateStore creates a skeleton database at the config's database path
// and registers cleanup.
func MustCreateStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.CreateSkeleton(context.Background(), cfg.Paths.Database, false)
	if err != nil {
		t.Fatalf("store.CreateSkeleton: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
