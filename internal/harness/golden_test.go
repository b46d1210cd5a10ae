package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"substitution_chain", "resolvable_relation_first"} {
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestExplainWithoutPlans(t *testing.T) {
	r := NewResult("broken")
	r.AddError("run 1: boom")

	assert.Equal(t, "scenario: broken\n\nerrors:\n- run 1: boom\n", Explain(r))
}
