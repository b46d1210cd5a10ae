package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Commit applies d atomically and returns the new commit id.
//
// Counts are clamped at zero: decrementing past zero leaves the count at 0
// and the log records the clamped change as applied. An empty delta is a
// no-op and returns an empty id.
func (s *Store) Commit(ctx context.Context, d *Delta) (string, error) {
	if d == nil || d.Empty() {
		return "", nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, err := s.applyChanges(ctx, tx, d.snapshot())
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// applyChanges records a commit and applies changes inside tx.
// Labels are applied in sorted order.
func (s *Store) applyChanges(ctx context.Context, tx *sql.Tx, changes map[string]int64) (string, error) {
	id := s.ids.Generate()
	if _, err := tx.ExecContext(ctx, `INSERT INTO commits (id) VALUES (?)`, id); err != nil {
		return "", fmt.Errorf("insert commit %s: %w", id, err)
	}

	for _, label := range slices.Sorted(maps.Keys(changes)) {
		requested := changes[label]

		current, err := countTx(ctx, tx, label)
		if err != nil {
			return "", err
		}
		next := max(0, current+requested)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO type_counts (label, count)
			VALUES (?, ?)
			ON CONFLICT(label) DO UPDATE SET count = excluded.count
		`, label, next); err != nil {
			return "", fmt.Errorf("update count of %q: %w", label, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO commit_deltas (commit_id, label, requested, applied)
			VALUES (?, ?, ?, ?)
		`, id, label, requested, next-current); err != nil {
			return "", fmt.Errorf("record delta of %q: %w", label, err)
		}
	}

	return id, nil
}

func countTx(ctx context.Context, tx *sql.Tx, label string) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT count FROM type_counts WHERE label = ?`, label).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read count of %q: %w", label, err)
	}
	return n, nil
}

func countsTx(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT label, count FROM type_counts`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[label] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
