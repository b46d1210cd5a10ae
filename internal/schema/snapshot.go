package schema

// Estimator estimates how many instances of a rule-resolvable type exist
// once rules are applied. Implementations must be pure: snapshots are
// shared across concurrent planners.
type Estimator func(snap *Snapshot, label string) int64

// Snapshot is the read-only context of one planning invocation.
//
// Fields must not be modified once the snapshot is in use.
type Snapshot struct {
	Schema     *Schema
	Statistics Statistics
	Estimator  Estimator
}

// SnapshotOption configures a Snapshot.
type SnapshotOption func(*Snapshot)

// WithEstimator replaces the inferred-count heuristic.
func WithEstimator(e Estimator) SnapshotOption {
	return func(s *Snapshot) {
		if e != nil {
			s.Estimator = e
		}
	}
}

// NewSnapshot pairs a schema with a private copy of the statistics.
// The default estimator is MinPremiseEstimate.
func NewSnapshot(s *Schema, stats Statistics, opts ...SnapshotOption) (*Snapshot, error) {
	if s == nil {
		return nil, newError(ErrCodeNilSchema, "", "snapshot requires a schema")
	}
	snap := &Snapshot{
		Schema:     s,
		Statistics: stats.Clone(),
		Estimator:  MinPremiseEstimate,
	}
	for _, opt := range opts {
		opt(snap)
	}
	return snap, nil
}

// Count returns the stored count of direct instances of the label.
func (s *Snapshot) Count(label string) int64 {
	return s.Statistics.Count(label)
}

// InstanceCount returns the stored count of the label and its subtypes.
func (s *Snapshot) InstanceCount(label string) int64 {
	var total int64
	for _, sub := range s.Schema.Subs(label) {
		total += s.Statistics.Count(sub)
	}
	return total
}

// EstimateResolvableTypeCount estimates the instance count of the label
// including inferred instances.
func (s *Snapshot) EstimateResolvableTypeCount(label string) int64 {
	est := s.Estimator
	if est == nil {
		est = MinPremiseEstimate
	}
	return est(s, label)
}

// TotalCount returns the number of stored instances across all schema
// types. Ownership counts are excluded.
func (s *Snapshot) TotalCount() int64 {
	var total int64
	for label, n := range s.Statistics {
		if IsImplicitHasLabel(label) || !s.Schema.Has(label) {
			continue
		}
		total += n
	}
	return total
}

// MinPremiseEstimate estimates an inferred type as its stored instance
// count plus the cheapest positive premise of any rule concluding it.
//
// Premises that are themselves inferred are estimated recursively. Premises
// already on the recursion path are skipped, so a transitive closure type
// is estimated from its non-recursive base premise.
func MinPremiseEstimate(snap *Snapshot, label string) int64 {
	return minPremiseEstimate(snap, NormalizeLabel(label), make(map[string]bool))
}

func minPremiseEstimate(snap *Snapshot, label string, path map[string]bool) int64 {
	count := snap.InstanceCount(label)
	rules := snap.Schema.RulesConcluding(label)
	if len(rules) == 0 {
		return count
	}

	path[label] = true
	defer delete(path, label)

	best := int64(-1)
	for _, r := range rules {
		for _, premise := range r.When {
			if path[premise] {
				continue
			}
			var est int64
			if snap.Schema.IsResolvable(premise) {
				est = minPremiseEstimate(snap, premise, path)
			} else {
				est = snap.InstanceCount(premise)
			}
			if best < 0 || est < best {
				best = est
			}
		}
	}
	if best < 0 {
		return count
	}
	return count + best
}
