package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/schema"
)

func TestCommitAppliesDelta(t *testing.T) {
	s := createTestStore(t)

	id := commit(t, s, map[string]int64{"person": 3, "employment": 2})
	assert.Equal(t, "commit-0001", id)

	stats, err := s.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, schema.Statistics{"person": 3, "employment": 2}, stats)
}

func TestCommitEmptyDeltaIsNoop(t *testing.T) {
	s := createTestStore(t)

	id, err := s.Commit(t.Context(), s.Begin())
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = s.Commit(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, id)

	records, err := s.Commits(t.Context())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCommitClampsAtZero(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64{"person": 2})

	d := s.Begin()
	d.Decrement("person", 5)
	d.Decrement("company", 1)
	_, err := s.Commit(t.Context(), d)
	require.NoError(t, err)

	n, err := s.Count(t.Context(), "person")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.Count(t.Context(), "company")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	records, err := s.Commits(t.Context())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []LabelChange{
		{Label: "company", Requested: -1, Applied: 0},
		{Label: "person", Requested: -5, Applied: -2},
	}, records[1].Changes)
}

func TestUncommittedDeltaIsInvisible(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64{"person": 1})

	d := s.Begin()
	d.Increment("person", 10)

	n, err := s.Count(t.Context(), "person")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "other readers see committed counts only")

	stats, err := s.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(11), d.Apply(stats).Count("person"), "the writer sees its own changes")
}

func TestCountUnknownLabel(t *testing.T) {
	s := createTestStore(t)

	n, err := s.Count(t.Context(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCommitsAreOrdered(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64{"b": 1, "a": 1})
	commit(t, s, map[string]int64{"a": 2})

	records, err := s.Commits(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []CommitRecord{
		{ID: "commit-0001", Seq: 1, Changes: []LabelChange{
			{Label: "a", Requested: 1, Applied: 1},
			{Label: "b", Requested: 1, Applied: 1},
		}},
		{ID: "commit-0002", Seq: 2, Changes: []LabelChange{
			{Label: "a", Requested: 2, Applied: 2},
		}},
	}, records)
}

func TestCommitIsAtomic(t *testing.T) {
	s := createTestStore(t)
	commit(t, s, map[string]int64{"person": 1})

	// Reusing a commit id violates the UNIQUE constraint; nothing of the
	// second delta may land.
	s.ids = fixedID("commit-0001")
	d := s.Begin()
	d.Increment("person", 5)
	_, err := s.Commit(t.Context(), d)
	require.Error(t, err)

	n, err := s.Count(t.Context(), "person")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }
