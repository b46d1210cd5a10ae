package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/schema"
	"github.com/roach88/resplan/internal/testutil"
)

const resolutionCUE = `
types: {
	baseEntity:       {kind: "entity"}
	someEntity:       {kind: "entity", sup: "baseEntity"}
	someOtherEntity:  {kind: "entity", sup: "baseEntity"}
	yetAnotherEntity: {kind: "entity", sup: "baseEntity"}

	someRelation:           {kind: "relation", roles: ["someRole", "otherRole"]}
	anotherRelation:        {kind: "relation", roles: ["someRole", "otherRole"]}
	yetAnotherRelation:     {kind: "relation", roles: ["someRole", "otherRole"]}
	derivedRelation:        {kind: "relation", roles: ["someRole", "otherRole"]}
	anotherDerivedRelation: {kind: "relation", roles: ["someRole", "otherRole"]}
	someRelationTrans:      {kind: "relation", roles: ["someRole", "otherRole"]}

	resource:           {kind: "attribute", value: "string"}
	anotherResource:    {kind: "attribute", value: "string"}
	derivedResource:    {kind: "attribute", value: "string"}
	yetAnotherResource: {kind: "attribute", value: "string"}
}

rules: {
	"derived-relation": {
		when: ["someRelation", "anotherRelation"]
		then: "derivedRelation"
	}
	"another-derived-relation": {
		when: ["anotherRelation", "yetAnotherRelation"]
		then: "anotherDerivedRelation"
	}
	"trans-base": {
		when: ["someRelation"]
		then: "someRelationTrans"
	}
	"trans-step": {
		when: ["someRelationTrans", "someRelationTrans"]
		then: "someRelationTrans"
	}
	"derived-resource": {
		when: ["someRelation", "resource"]
		then: "derivedResource"
	}
}

statistics: {
	baseEntity:       5
	someEntity:       50
	someOtherEntity:  40
	yetAnotherEntity: 30

	someRelation:           20
	anotherRelation:        30
	yetAnotherRelation:     40
	derivedRelation:        0
	anotherDerivedRelation: 0
	someRelationTrans:      0

	resource:           60
	anotherResource:    70
	derivedResource:    0
	yetAnotherResource: 80

	"@has-resource":        100
	"@has-anotherResource": 90
}
`

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileSchemaMatchesBuilder(t *testing.T) {
	s, err := CompileSchema(compileString(t, resolutionCUE))
	require.NoError(t, err)

	want := testutil.ResolutionSchema(t)
	assert.Equal(t, want.Labels(), s.Labels())
	for _, label := range want.Labels() {
		wantType, _ := want.Type(label)
		gotType, ok := s.Type(label)
		require.True(t, ok, label)
		assert.Equal(t, wantType, gotType, label)
	}
	assert.Equal(t, want.Rules(), s.Rules())
	assert.Equal(t, want.RecursionWarnings(), s.RecursionWarnings())
}

func TestCompileStatistics(t *testing.T) {
	stats, err := CompileStatistics(compileString(t, resolutionCUE))
	require.NoError(t, err)
	assert.Equal(t, testutil.ResolutionStatistics, stats)
}

func TestCompileStatisticsOptional(t *testing.T) {
	stats, err := CompileStatistics(compileString(t, `types: {person: {kind: "entity"}}`))
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestCompileStatisticsErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"negative count", `statistics: {person: -1}`, "statistics.person"},
		{"non-integer count", `statistics: {person: "many"}`, "statistics.person"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileStatistics(compileString(t, tt.src))
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSnapshot(t *testing.T) {
	snap, err := CompileSnapshot(compileString(t, resolutionCUE))
	require.NoError(t, err)

	assert.Equal(t, int64(50), snap.Count("someEntity"))
	assert.Equal(t, int64(125), snap.InstanceCount("baseEntity"))
	assert.Equal(t, int64(20), snap.EstimateResolvableTypeCount("someRelationTrans"))
}

func TestCompileSchemaQuotedLabelsAreNormalized(t *testing.T) {
	s, err := CompileSchema(compileString(t, `
types: {
	"  person ": {kind: "entity"}
	"café": {kind: "entity", sup: "person"}
}`))
	require.NoError(t, err)

	assert.True(t, s.Has("person"))
	assert.True(t, s.IsSubtypeOf("café", "person"))
}

func TestCompileSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "missing types",
			src:     `rules: {}`,
			field:   "types",
			message: "types are required",
		},
		{
			name:    "missing kind",
			src:     `types: {person: {sup: "entity"}}`,
			field:   "types.person.kind",
			message: "kind is required",
		},
		{
			name:    "invalid kind",
			src:     `types: {person: {kind: "thing"}}`,
			field:   "types.person.kind",
			message: `kind must be entity, relation or attribute, got "thing"`,
		},
		{
			name:    "float value type",
			src:     `types: {age: {kind: "attribute", value: "double"}}`,
			field:   "types.age.value",
			message: "float value types are forbidden - use long instead",
		},
		{
			name:    "unknown value type",
			src:     `types: {age: {kind: "attribute", value: "varchar"}}`,
			field:   "types.age.value",
			message: `invalid value type "varchar"`,
		},
		{
			name:    "value on entity",
			src:     `types: {person: {kind: "entity", value: "string"}}`,
			field:   "types.person.value",
			message: `only attribute types have a value type, "person" is a entity`,
		},
		{
			name:    "roles on attribute",
			src:     `types: {name: {kind: "attribute", roles: ["owner"]}}`,
			field:   "types.name.roles",
			message: `only relation types declare roles, "name" is a attribute`,
		},
		{
			name:    "roles not strings",
			src:     `types: {employment: {kind: "relation", roles: [1, 2]}}`,
			field:   "types.employment.roles",
			message: "roles must be a list of strings",
		},
		{
			name: "rule without premises",
			src: `
types: {person: {kind: "entity"}}
rules: {r: {when: [], then: "person"}}`,
			field:   "rules.r.when",
			message: "at least one premise is required",
		},
		{
			name: "rule without conclusion",
			src: `
types: {person: {kind: "entity"}}
rules: {r: {when: ["person"]}}`,
			field:   "rules.r.then",
			message: "then is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchema(compileString(t, tt.src))
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.message, ce.Message)
		})
	}
}

func TestCompileSchemaBuildErrorsKeepCode(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		code  schema.ErrorCode
	}{
		{
			name:  "unknown supertype",
			src:   `types: {employee: {kind: "entity", sup: "person"}}`,
			field: "types.employee",
			code:  schema.ErrCodeUnknownType,
		},
		{
			name: "supertype of another kind",
			src: `types: {
	person:   {kind: "entity"}
	employee: {kind: "relation", sup: "person"}
}`,
			field: "types.employee",
			code:  schema.ErrCodeKindMismatch,
		},
		{
			name: "supertype cycle",
			src: `types: {
	a: {kind: "entity", sup: "b"}
	b: {kind: "entity", sup: "a"}
}`,
			field: "types.a",
			code:  schema.ErrCodeSupertypeCycle,
		},
		{
			name: "rule with unknown premise",
			src: `
types: {person: {kind: "entity"}}
rules: {r: {when: ["ghost"], then: "person"}}`,
			field: "rules.r",
			code:  schema.ErrCodeUnknownType,
		},
		{
			name:  "reserved root label",
			src:   `types: {entity: {kind: "entity"}}`,
			field: "types.entity",
			code:  schema.ErrCodeDuplicateLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchema(compileString(t, tt.src))
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, schema.HasCode(err, tt.code), "got %v", err)
			assert.True(t, ce.Pos.IsValid(), "position should point at the definition")
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "types.person.kind", Message: "kind is required"}
	assert.Equal(t, "types.person.kind: kind is required", err.Error())
}
