package harness

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/resplan/internal/compiler"
	"github.com/roach88/resplan/internal/partition"
	"github.com/roach88/resplan/internal/planner"
	"github.com/roach88/resplan/internal/query"
	"github.com/roach88/resplan/internal/schema"
)

// Harness runs planning scenarios.
//
// Thread-safety: a Harness holds no per-run state and may run scenarios
// concurrently.
type Harness struct {
	logger *slog.Logger
	stats  schema.Statistics
	source SnapshotSource
}

// SnapshotSource builds the planning snapshot for a compiled schema, e.g.
// from the counts of a statistics store.
type SnapshotSource func(ctx context.Context, s *schema.Schema) (*schema.Snapshot, error)

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the planner and partitioner.
//
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithStatistics replaces the statistics of every scenario, e.g. with the
// counts of a statistics store.
func WithStatistics(stats schema.Statistics) Option {
	return func(h *Harness) {
		h.stats = stats.Clone()
	}
}

// WithSnapshotSource takes every scenario's counts and estimator from src.
// It wins over WithStatistics. Scenario statistics still override per label.
func WithSnapshotSource(src SnapshotSource) Option {
	return func(h *Harness) {
		h.source = src
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	return New().Run(ctx, sc)
}

// RunAll executes scenarios with a default harness.
func RunAll(ctx context.Context, scenarios []*Scenario, parallelism int) ([]*Result, error) {
	return New().RunAll(ctx, scenarios, parallelism)
}

// Run plans the scenario's query and evaluates its assertions.
//
// Execution flow:
//  1. Load and compile the schema, apply statistics overrides
//  2. Build the query from the statements
//  3. Plan and partition Repeat times, comparing fingerprints to the first run
//  4. Evaluate assertions against the first run's plans
//
// Errors loading the schema or building the query are returned. Planning
// failures, including invariant violations, fail the result instead.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	snap, err := h.snapshot(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	atoms, names, err := sc.Atoms()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	q, err := query.New(snap, atoms...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	pl := planner.New(planner.WithLogger(h.logger))
	pt := partition.New(partition.WithLogger(h.logger))

	result := NewResult(sc.Name)
	for run := range max(sc.Repeat, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ap, qp, err := planOnce(pl, pt, q)
		if err != nil {
			result.AddError(fmt.Sprintf("run %d: %v", run+1, err))
			return result, nil
		}
		result.Runs++

		atomFP, err := ap.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		queryFP, err := qp.Fingerprint()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}

		if run == 0 {
			result.atomPlan, result.queryPlan = ap, qp
			result.AtomPlanFingerprint, result.QueryPlanFingerprint = atomFP, queryFP
			continue
		}
		if atomFP != result.AtomPlanFingerprint {
			result.AddError(fmt.Sprintf("run %d: atom plan differs from run 1:\n%s", run+1, ap))
		}
		if queryFP != result.QueryPlanFingerprint {
			result.AddError(fmt.Sprintf("run %d: query plan differs from run 1:\n%s", run+1, qp))
		}
	}

	describe(result, names)
	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario complete",
		"scenario", sc.Name,
		"pass", result.Pass,
		"runs", result.Runs,
	)
	return result, nil
}

// RunAll executes scenarios concurrently, at most parallelism at a time
// (unbounded when parallelism < 1). Results keep the order of scenarios.
// The first error cancels the remaining runs.
func (h *Harness) RunAll(ctx context.Context, scenarios []*Scenario, parallelism int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, sc := range scenarios {
		g.Go(func() error {
			r, err := h.Run(ctx, sc)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func planOnce(pl *planner.Planner, pt *partition.Partitioner, q *query.Query) (*planner.AtomPlan, *partition.QueryPlan, error) {
	ap, err := pl.Plan(q)
	if err != nil {
		return nil, nil, err
	}
	qp, err := pt.Partition(ap)
	if err != nil {
		return nil, nil, err
	}
	return ap, qp, nil
}

func (h *Harness) snapshot(ctx context.Context, sc *Scenario) (*schema.Snapshot, error) {
	v, err := compiler.Load(sc.Schema)
	if err != nil {
		return nil, err
	}
	s, err := compiler.CompileSchema(v)
	if err != nil {
		return nil, err
	}

	var snapOpts []schema.SnapshotOption
	stats := h.stats
	switch {
	case h.source != nil:
		base, err := h.source(ctx, s)
		if err != nil {
			return nil, err
		}
		stats = base.Statistics
		snapOpts = append(snapOpts, schema.WithEstimator(base.Estimator))
	case stats == nil:
		if stats, err = compiler.CompileStatistics(v); err != nil {
			return nil, err
		}
	}
	stats = stats.Clone()
	for label, n := range sc.Statistics {
		stats[schema.NormalizeLabel(label)] = n
	}
	return schema.NewSnapshot(s, stats, snapOpts...)
}

// describe fills the name-based views of the first run's plans.
func describe(r *Result, names map[string]string) {
	if r.atomPlan == nil {
		return
	}
	for _, a := range r.atomPlan.Atoms() {
		r.AtomPlan = append(r.AtomPlan, names[a.Key()])
	}
	for _, sub := range r.queryPlan.Queries() {
		sq := SubQuery{
			Resolvable: sub.IsRuleResolvable(),
			Atomic:     sub.IsAtomic(),
		}
		for _, a := range sub.Atoms() {
			sq.Atoms = append(sq.Atoms, names[a.Key()])
		}
		r.QueryPlan = append(r.QueryPlan, sq)
	}
}
