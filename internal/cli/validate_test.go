package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/compiler"
)

func TestValidateCommandValid(t *testing.T) {
	out, err := execute(t, "validate", "testdata/schema.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid (5 types, 1 rules, 5 counts)")
	assert.Contains(t, out, "⚠ Self-recursive rule conclusion: reports → reports")
}

func TestValidateCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/schema.cue")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.EqualValues(t, 5, data["types"])
	assert.Len(t, data["warnings"], 1)
}

func TestValidateCommandInvalid(t *testing.T) {
	out, err := execute(t, "validate", "testdata/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrInvalidKind)
}

func TestValidateCommandInvalidJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", "testdata/invalid.cue")
	require.Error(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["valid"])
	assert.GreaterOrEqual(t, len(data["errors"].([]any)), 2)
}

func TestValidateCommandMissingFile(t *testing.T) {
	out, err := execute(t, "validate", "testdata/missing.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrCodeNotFound)
}
