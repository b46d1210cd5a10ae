package schema

import (
	"maps"
	"slices"
	"strings"
)

// ImplicitHasPrefix marks the statistics entry counting ownerships of an
// attribute type, as opposed to instances of the attribute itself.
const ImplicitHasPrefix = "@has-"

// ImplicitHasLabel returns the statistics label counting ownerships of attr.
func ImplicitHasLabel(attr string) string {
	return ImplicitHasPrefix + NormalizeLabel(attr)
}

// IsImplicitHasLabel reports whether label counts ownerships.
func IsImplicitHasLabel(label string) bool {
	return strings.HasPrefix(label, ImplicitHasPrefix)
}

// Statistics maps a type label to the number of its direct instances.
// Subtype instances are not included; see Snapshot.InstanceCount.
type Statistics map[string]int64

// Count returns the stored count, 0 for unknown labels.
func (st Statistics) Count(label string) int64 {
	return st[NormalizeLabel(label)]
}

// Lookup returns the stored count and whether one was recorded.
func (st Statistics) Lookup(label string) (int64, bool) {
	n, ok := st[NormalizeLabel(label)]
	return n, ok
}

// Labels returns the recorded labels in sorted order.
func (st Statistics) Labels() []string {
	return slices.Sorted(maps.Keys(st))
}

// Clone returns an independent copy with normalized labels.
func (st Statistics) Clone() Statistics {
	out := make(Statistics, len(st))
	for k, v := range st {
		out[NormalizeLabel(k)] += v
	}
	return out
}
