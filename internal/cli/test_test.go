package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	_, err := execute(t, "test", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandPassing(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios", "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ chain")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandFailing(t *testing.T) {
	out, err := execute(t, "test", "testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ chain_fail")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "testdata/scenarios")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["passed"])
	assert.EqualValues(t, 0, data["failed"])
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios", "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "0 passed, 0 failed, 0 total")
}

func TestTestCommandGolden(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")

	_, err := execute(t, "test", "testdata/scenarios", "--golden", golden)
	require.Error(t, err, "missing golden files fail the run")

	_, err = execute(t, "test", "testdata/scenarios", "--golden", golden, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(golden, "chain.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario: chain")

	_, err = execute(t, "test", "testdata/scenarios", "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "chain.golden"), []byte("stale\n"), 0o644))
	out, err := execute(t, "test", "testdata/scenarios", "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "plan differs from")
}

func TestTestCommandUpdateRequiresGolden(t *testing.T) {
	_, err := execute(t, "test", "testdata/scenarios", "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandWithStatisticsFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "stats.db")
	file := filepath.Join(dir, "stats.bin")

	_, err := execute(t, "stats", "seed", "testdata/schema.cue", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "stats", "export", file, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "test", "testdata/scenarios", "--stats", file)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandCorruptStatisticsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stats.bin")
	require.NoError(t, os.WriteFile(file, []byte("not a statistics file"), 0o644))

	_, err := execute(t, "test", "testdata/scenarios", "--stats", file)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read statistics file")
}
