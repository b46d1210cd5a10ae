package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/resplan/internal/schema"
)

// CommitRecord is one entry of the commit log.
type CommitRecord struct {
	ID      string
	Seq     int64
	Changes []LabelChange
}

// LabelChange is the change a commit made to one label. Applied differs
// from Requested when the count was clamped at zero.
type LabelChange struct {
	Label     string
	Requested int64
	Applied   int64
}

// Count returns the committed count of label, 0 if never recorded.
func (s *Store) Count(ctx context.Context, label string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM type_counts WHERE label = ?`,
		schema.NormalizeLabel(label),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", label, err)
	}
	return n, nil
}

// Snapshot returns all committed counts.
func (s *Store) Snapshot(ctx context.Context) (schema.Statistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, count
		FROM type_counts
		ORDER BY label COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	stats := schema.Statistics{}
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		stats[label] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return stats, nil
}

// Commits returns the commit log.
// Results are ordered deterministically: ORDER BY seq ASC, label ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing was committed.
func (s *Store) Commits(ctx context.Context) ([]CommitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.seq, d.label, d.requested, d.applied
		FROM commits c
		JOIN commit_deltas d ON d.commit_id = c.id
		ORDER BY c.seq ASC, d.label COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	records := []CommitRecord{}
	for rows.Next() {
		var id string
		var seq int64
		var change LabelChange
		if err := rows.Scan(&id, &seq, &change.Label, &change.Requested, &change.Applied); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		if n := len(records); n == 0 || records[n-1].ID != id {
			records = append(records, CommitRecord{ID: id, Seq: seq})
		}
		last := &records[len(records)-1]
		last.Changes = append(last.Changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return records, nil
}
