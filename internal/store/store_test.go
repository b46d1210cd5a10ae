package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/testutil"
)

func TestOpenAppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")

	s1, err := Open(path)
	require.NoError(t, err)
	d := s1.Begin()
	d.Increment("person", 3)
	_, err = s1.Commit(t.Context(), d)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(t.Context(), "person")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestCloseWithoutDatabase(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestDefaultCommitIDsAreUUIDv7(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer s.Close()

	d := s.Begin()
	d.Increment("person", 1)
	id, err := s.Commit(t.Context(), d)
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestPlanningSnapshot(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64(testutil.ResolutionStatistics))

	snap, err := s.PlanningSnapshot(t.Context(), testutil.ResolutionSchema(t), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(50), snap.Count("someEntity"))
	assert.Equal(t, int64(100), snap.Count("@has-resource"))
	assert.Equal(t, int64(20), snap.EstimateResolvableTypeCount("derivedRelation"))
}

func TestPlanningSnapshotWithPendingDelta(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64(testutil.ResolutionStatistics))

	d := s.Begin()
	d.Increment("someEntity", 25)
	d.Decrement("@has-resource", 500)

	snap, err := s.PlanningSnapshot(t.Context(), testutil.ResolutionSchema(t), d)
	require.NoError(t, err)
	assert.Equal(t, int64(75), snap.Count("someEntity"))
	assert.Equal(t, int64(0), snap.Count("@has-resource"), "pending removals clamp at zero")

	n, err := s.Count(t.Context(), "someEntity")
	require.NoError(t, err)
	assert.Equal(t, int64(50), n, "pending changes are not committed")
	assert.False(t, d.Empty())
}
