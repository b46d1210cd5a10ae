package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Explain renders a result as text: the atom plan, one atom per line with
// a blank line between components, then the query plan. Fingerprints are
// left out so the text only changes when the plans do.
func Explain(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", r.Scenario)

	ap, qp := r.Plans()
	if ap != nil {
		fmt.Fprintf(&sb, "\natom plan:\n%s", ap)
	}
	if qp != nil {
		fmt.Fprintf(&sb, "\nquery plan:\n%s", qp)
	}
	if len(r.Errors) > 0 {
		sb.WriteString("\nerrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	return sb.String()
}

// RunWithGolden executes a scenario and compares its explanation against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the explanation of an existing result against the
// golden file testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(Explain(result)))
}
