package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resolution.cue", resolutionCUE)

	v, err := LoadFile(path)
	require.NoError(t, err)

	s, err := CompileSchema(v)
	require.NoError(t, err)
	assert.True(t, s.Has("someRelationTrans"))
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.cue"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadFileSyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", "types: {person: {kind: \"entity\"}\n")

	_, err := LoadFile(path)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestLoadDirUnifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "types.cue", `package schema

types: {
	person:     {kind: "entity"}
	employment: {kind: "relation", roles: ["employee", "employer"]}
}
`)
	writeFile(t, dir, "rules.cue", `package schema

rules: {
	"transitive-employment": {
		when: ["employment", "employment"]
		then: "employment"
	}
}

statistics: {person: 10, employment: 4}
`)

	snap, err := LoadSnapshot(dir)
	require.NoError(t, err)

	assert.True(t, snap.Schema.IsRecursive("employment"))
	assert.Equal(t, int64(10), snap.Count("person"))
	require.Len(t, snap.Schema.RecursionWarnings(), 1)
	assert.Equal(t, "Self-recursive rule conclusion: employment → employment",
		snap.Schema.RecursionWarnings()[0].Message)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeNotFound, le.Code)
	})

	t.Run("not a directory", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "schema.cue", resolutionCUE)
		_, err := LoadDir(path)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeNotFound, le.Code)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeNoFiles, le.Code)
	})
}

func TestLoadErrorFormat(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in /tmp/x"}
	assert.Equal(t, "E003: no CUE files found in /tmp/x", err.Error())
}
