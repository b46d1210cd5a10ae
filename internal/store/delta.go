package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/roach88/resplan/internal/schema"
)

// Delta accumulates uncommitted count changes.
//
// A Delta belongs to one writer; it is applied atomically by Commit. Labels
// are normalized the same way schema labels are.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Delta struct {
	mu      sync.Mutex
	changes map[string]int64
}

// Begin starts a new, empty delta.
func (s *Store) Begin() *Delta {
	return &Delta{changes: make(map[string]int64)}
}

// Increment adds n instances of label.
func (d *Delta) Increment(label string, n int64) {
	d.add(label, n)
}

// Decrement removes n instances of label.
func (d *Delta) Decrement(label string, n int64) {
	d.add(label, -n)
}

func (d *Delta) add(label string, n int64) {
	label = schema.NormalizeLabel(label)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.changes[label] += n
	if d.changes[label] == 0 {
		delete(d.changes, label)
	}
}

// Delta returns the pending change for label, 0 for untouched labels.
func (d *Delta) Delta(label string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changes[schema.NormalizeLabel(label)]
}

// Labels returns the labels with a non-zero pending change, sorted.
func (d *Delta) Labels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.changes))
}

// Empty reports whether the delta changes nothing.
func (d *Delta) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.changes) == 0
}

// Apply returns base with the pending changes applied, clamped at zero.
// base is not modified. This is the view a writer has of its own
// uncommitted changes.
func (d *Delta) Apply(base schema.Statistics) schema.Statistics {
	out := base.Clone()
	d.mu.Lock()
	defer d.mu.Unlock()
	for label, n := range d.changes {
		out[label] = max(0, out[label]+n)
	}
	return out
}

func (d *Delta) snapshot() map[string]int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.changes)
}
