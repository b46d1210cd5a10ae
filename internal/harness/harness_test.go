package harness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/schema"
)

const resolutionSchema = "testdata/schema/resolution.cue"

func TestRunAllScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	results, err := RunAll(context.Background(), scenarios, 4)
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))

	for i, r := range results {
		t.Run(r.Scenario, func(t *testing.T) {
			assert.Equal(t, scenarios[i].Name, r.Scenario)
			assert.True(t, r.Pass, "errors: %v", r.Errors)
			assert.Empty(t, r.Errors)
			assert.Equal(t, 20, r.Runs)
			assert.NotEmpty(t, r.AtomPlanFingerprint)
			assert.NotEmpty(t, r.QueryPlanFingerprint)
		})
	}
}

func TestRunFillsNamedPlans(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/resolvable_relation_first.yaml")
	require.NoError(t, err)

	r, err := Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []string{"derived", "x-y"}, r.AtomPlan)
	assert.Equal(t, []SubQuery{
		{Atoms: []string{"derived", "$z id Vsampleid"}, Resolvable: true, Atomic: true},
		{Atoms: []string{"x-y"}, Atomic: true},
	}, r.QueryPlan)

	ap, qp := r.Plans()
	require.NotNil(t, ap)
	require.NotNil(t, qp)
	assert.Equal(t, 2, qp.Len())
}

func TestRunReportsFailedAssertions(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)
	sc.Assertions = []Assertion{
		{Type: AssertAtomPlan, Atoms: []string{"x-y", "y-z", "z-w"}},
		{Type: AssertQueryCount, Count: 1},
	}

	r, err := Run(context.Background(), sc)
	require.NoError(t, err)

	assert.False(t, r.Pass)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "Assertion failed: atom_plan")
	assert.Contains(t, r.Errors[0], "Actual: z-w -> y-z -> x-y")
}

func TestRunRejectsUnknownType(t *testing.T) {
	sc := &Scenario{
		Name:   "unknown_type",
		Schema: resolutionSchema,
		Query:  []Statement{{Isa: &IsaStatement{Var: "x", Type: "nosuchEntity"}}},
	}

	_, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario unknown_type")
	assert.Contains(t, err.Error(), "nosuchEntity")
}

func TestRunHonoursCancellation(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAllStopsOnError(t *testing.T) {
	good, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)
	bad := &Scenario{Name: "bad", Schema: "testdata/schema/missing.cue"}

	_, err = RunAll(context.Background(), []*Scenario{good, bad}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario bad")
}

func TestScenarioStatisticsOverrideSchemaCounts(t *testing.T) {
	sc := &Scenario{
		Schema:     resolutionSchema,
		Statistics: map[string]int64{"someRelation": 7},
	}

	snap, err := New().snapshot(t.Context(), sc)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Count("someRelation"))
	assert.Equal(t, int64(30), snap.Count("anotherRelation"))
}

func TestWithStatisticsReplacesSchemaCounts(t *testing.T) {
	h := New(WithStatistics(schema.Statistics{"someEntity": 3}))
	sc := &Scenario{
		Schema:     resolutionSchema,
		Statistics: map[string]int64{"someRelation": 7},
	}

	snap, err := h.snapshot(t.Context(), sc)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Count("someEntity"))
	assert.Equal(t, int64(7), snap.Count("someRelation"))
	assert.Equal(t, int64(0), snap.Count("anotherRelation"))
}

func TestWithSnapshotSource(t *testing.T) {
	var calls int
	src := func(_ context.Context, s *schema.Schema) (*schema.Snapshot, error) {
		calls++
		return schema.NewSnapshot(s, schema.Statistics{"someEntity": 4, "someRelation": 9})
	}
	h := New(
		WithStatistics(schema.Statistics{"someEntity": 3}),
		WithSnapshotSource(src),
	)
	sc := &Scenario{
		Schema:     resolutionSchema,
		Statistics: map[string]int64{"someRelation": 7},
	}

	snap, err := h.snapshot(t.Context(), sc)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(4), snap.Count("someEntity"))
	assert.Equal(t, int64(7), snap.Count("someRelation"), "scenario statistics override the source")
}

func TestSnapshotSourceError(t *testing.T) {
	boom := errors.New("store unavailable")
	h := New(WithSnapshotSource(func(context.Context, *schema.Schema) (*schema.Snapshot, error) {
		return nil, boom
	}))

	sc, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)

	_, err = h.Run(t.Context(), sc)
	assert.ErrorIs(t, err, boom)
}

func TestHarnessLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sc, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)

	_, err = New(WithLogger(logger)).Run(context.Background(), sc)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "scenario complete")
	assert.Contains(t, out, "atom planned")
}
