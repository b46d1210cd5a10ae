package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/atom"
)

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/substitution_chain.yaml")
	require.NoError(t, err)

	assert.Equal(t, "substitution_chain", sc.Name)
	assert.Equal(t, 20, sc.Repeat)
	assert.Equal(t, filepath.Join("testdata", "schema", "resolution.cue"), sc.Schema)
	assert.Len(t, sc.Query, 4)
	require.Len(t, sc.Assertions, 4)
	assert.Equal(t, AssertAtomPlan, sc.Assertions[0].Type)
	assert.Equal(t, []string{"z-w", "y-z", "x-y"}, sc.Assertions[0].Atoms)
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", "testdata/invalid/nope.yaml", "failed to read scenario file"},
		{"unknown field", "testdata/invalid/unknown_field.yaml", "failed to parse YAML"},
		{"two forms", "testdata/invalid/two_forms.yaml", "exactly one of"},
		{"unknown atom", "testdata/invalid/unknown_atom.yaml", `unknown atom "y-type"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	assert.Equal(t, []string{
		"disconnected",
		"ends_sharing_resource",
		"link_with_rule_at_end",
		"ontological_last",
		"resolvable_relation_first",
		"specific_resource_first",
		"substitution_chain",
	}, names)
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files found")
}

func TestStatementAtom(t *testing.T) {
	tests := []struct {
		name string
		st   Statement
		want string
	}{
		{
			name: "relation with roles",
			st: Statement{Relation: &RelationStatement{
				Type:    "someRelation",
				Players: []PlayerStatement{{Role: "someRole", Var: "x"}, {Role: "otherRole", Var: "y"}},
			}},
			want: "(someRole: $x, otherRole: $y) isa someRelation",
		},
		{
			name: "has value",
			st:   Statement{Has: &HasStatement{Owner: "w", Type: "resource", Value: "test"}},
			want: `$w has resource "test"`,
		},
		{
			name: "has variable",
			st:   Statement{Has: &HasStatement{Owner: "x", Type: "anotherResource", Var: "r"}},
			want: "$x has anotherResource $r",
		},
		{
			name: "isa type variable",
			st:   Statement{Isa: &IsaStatement{Var: "x", TypeVar: "type"}},
			want: "$x isa $type",
		},
		{
			name: "id",
			st:   Statement{ID: &IDStatement{Var: "w", ID: "V1"}},
			want: "$w id V1",
		},
		{
			name: "compare variables",
			st:   Statement{Compare: &CompareStatement{Op: "!=", Left: "x", Right: "y"}},
			want: "$x != $y",
		},
		{
			name: "compare literal",
			st:   Statement{Compare: &CompareStatement{Op: ">", Left: "x", Value: 5}},
			want: "$x > 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.st.Atom()
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestStatementAtomErrors(t *testing.T) {
	_, err := Statement{}.Atom()
	assert.ErrorContains(t, err, "got 0")

	_, err = Statement{Compare: &CompareStatement{Op: "~", Left: "x", Right: "y"}}.Atom()
	assert.Error(t, err)

	_, err = Statement{Has: &HasStatement{Owner: "x", Type: "resource", Value: 1.5}}.Atom()
	assert.ErrorContains(t, err, "floats are not valid literals")
}

func TestScenarioAtomsDefaultNames(t *testing.T) {
	sc := &Scenario{Query: []Statement{
		{Name: "x-type", Isa: &IsaStatement{Var: "x", Type: "someEntity"}},
		{ID: &IDStatement{Var: "x", ID: "V1"}},
	}}

	atoms, names, err := sc.Atoms()
	require.NoError(t, err)
	require.Len(t, atoms, 2)

	_, isID := atoms[1].(atom.IDPredicate)
	assert.True(t, isID)
	assert.Equal(t, "x-type", names[atoms[0].Key()])
	assert.Equal(t, "$x id V1", names[atoms[1].Key()])
}
