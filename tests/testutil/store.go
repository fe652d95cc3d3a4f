package testutil

import (
	"testing"

	"github.com/nhle/tasksync/internal/remote"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *remote.SQLiteStore {
	t.Helper()

	s, err := remote.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewMemoryStore creates an empty MemoryStore that is closed when the
// test completes.
func NewMemoryStore(t *testing.T) *remote.MemoryStore {
	t.Helper()

	s := remote.NewMemoryStore(nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
