package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "resplan", cmd.Use)
	assert.Contains(t, cmd.Long, "conjunctive queries")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"plan"},
		{"test"},
		{"validate"},
		{"stats"},
		{"stats", "set"},
		{"stats", "add"},
		{"stats", "seed"},
		{"stats", "show"},
		{"stats", "log"},
		{"stats", "verify"},
		{"stats", "export"},
		{"stats", "import"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	planCmd, _, err := cmd.Find([]string{"plan"})
	require.NoError(t, err)
	assert.NotNil(t, planCmd.Flags().Lookup("db"))

	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)
	for _, name := range []string{"parallel", "golden", "update", "filter"} {
		assert.NotNil(t, testCmd.Flags().Lookup(name), name)
	}

	statsCmd, _, err := cmd.Find([]string{"stats"})
	require.NoError(t, err)
	assert.NotNil(t, statsCmd.PersistentFlags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "validate", "testdata/schema.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
