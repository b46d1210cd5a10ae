package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/resplan/internal/schema"
)

// Replay rebuilds the counts by applying the commit log in seq order.
func (s *Store) Replay(ctx context.Context) (schema.Statistics, error) {
	records, err := s.Commits(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	stats := schema.Statistics{}
	for _, rec := range records {
		for _, c := range rec.Changes {
			stats[c.Label] += c.Applied
			if stats[c.Label] < 0 {
				return nil, fmt.Errorf("replay: commit %s drives %q below zero", rec.ID, c.Label)
			}
		}
	}
	return stats, nil
}

// Verify checks that the committed counts match a replay of the log.
func (s *Store) Verify(ctx context.Context) error {
	replayed, err := s.Replay(ctx)
	if err != nil {
		return err
	}
	stored, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	labels := slices.Sorted(maps.Keys(stored))
	for _, label := range slices.Sorted(maps.Keys(replayed)) {
		if _, ok := stored[label]; !ok {
			labels = append(labels, label)
		}
	}
	for _, label := range labels {
		if stored[label] != replayed[label] {
			return fmt.Errorf("verify: %q is %d, log replays to %d", label, stored[label], replayed[label])
		}
	}
	return nil
}
