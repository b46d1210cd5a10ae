package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/testutil"
)

// createTestStore creates a new store in a temp dir with deterministic
// commit ids ("commit-0001", ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceGenerator("commit")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// commit applies the given label changes as one delta.
func commit(t *testing.T, s *Store, changes map[string]int64) string {
	t.Helper()
	d := s.Begin()
	for label, n := range changes {
		d.Increment(label, n)
	}
	id, err := s.Commit(t.Context(), d)
	require.NoError(t, err)
	return id
}
