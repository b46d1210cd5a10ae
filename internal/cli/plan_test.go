package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommandText(t *testing.T) {
	out, err := execute(t, "plan", "testdata/scenarios/chain.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "scenario: chain")
	assert.Contains(t, out, "atom plan:\n0. $p has name \"Alice\"\n")
	assert.Contains(t, out, "query plan:\n0. {")
	assert.NotContains(t, out, "errors:")
}

func TestPlanCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "plan", "testdata/scenarios/chain.yaml")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "chain", data["scenario"])
	assert.Equal(t, true, data["pass"])
	assert.Equal(t, []any{"named", "employed"}, data["atom_plan"])
	assert.EqualValues(t, 5, data["runs"])
}

func TestPlanCommandFailingScenario(t *testing.T) {
	out, err := execute(t, "plan", "testdata/failing/chain_fail.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "errors:")
	assert.Contains(t, out, "Assertion failed: query_count")
}

func TestPlanCommandMissingScenario(t *testing.T) {
	_, err := execute(t, "plan", "testdata/scenarios/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlanCommandWithDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "stats.db")

	_, err := execute(t, "stats", "seed", "testdata/schema.cue", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "--verbose", "plan", "testdata/scenarios/chain.yaml", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "atom plan:\n0. $p has name \"Alice\"\n")
}

func TestPlanCommandPendingChangesStayUncommitted(t *testing.T) {
	db := filepath.Join(t.TempDir(), "stats.db")

	_, err := execute(t, "stats", "seed", "testdata/schema.cue", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "plan", "testdata/scenarios/chain.yaml", "--db", db,
		"--pending", "person=-40", "--pending", "employment=500")
	require.NoError(t, err)
	assert.Contains(t, out, "atom plan:\n0. $p has name \"Alice\"\n")

	out, err = execute(t, "stats", "show", "person", "employment", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "person\t100\nemployment\t100\n", out)
}

func TestPlanCommandInvalidPending(t *testing.T) {
	db := filepath.Join(t.TempDir(), "stats.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"without database", []string{"--pending", "person=1"}, "--pending requires --db"},
		{"missing delta", []string{"--db", db, "--pending", "person"}, "want label=delta"},
		{"missing label", []string{"--db", db, "--pending", "=3"}, "want label=delta"},
		{"not a number", []string{"--db", db, "--pending", "person=lots"}, "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"plan", "testdata/scenarios/chain.yaml"}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
