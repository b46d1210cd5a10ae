package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/schema"
)

// Counts stored for the resolution-plan fixture.
//
// Derived types have no stored instances; their estimates come from rule
// premises: derivedRelation and someRelationTrans estimate to
// someRelation's count, anotherDerivedRelation to anotherRelation's.
var ResolutionStatistics = schema.Statistics{
	"baseEntity":       5,
	"someEntity":       50,
	"someOtherEntity":  40,
	"yetAnotherEntity": 30,

	"someRelation":           20,
	"anotherRelation":        30,
	"yetAnotherRelation":     40,
	"derivedRelation":        0,
	"anotherDerivedRelation": 0,
	"someRelationTrans":      0,

	"resource":           60,
	"anotherResource":    70,
	"derivedResource":    0,
	"yetAnotherResource": 80,

	"@has-resource":        100,
	"@has-anotherResource": 90,
}

// ResolutionSchemaBuilder returns a builder holding the resolution-plan
// fixture: three entity subtypes of baseEntity, three stored relations,
// two derived relations, one transitive relation and four attributes, one
// of them derived.
func ResolutionSchemaBuilder() *schema.Builder {
	roles := []string{"someRole", "otherRole"}
	return schema.NewBuilder().
		Entity("baseEntity", "").
		Entity("someEntity", "baseEntity").
		Entity("someOtherEntity", "baseEntity").
		Entity("yetAnotherEntity", "baseEntity").
		Relation("someRelation", "", roles...).
		Relation("anotherRelation", "", roles...).
		Relation("yetAnotherRelation", "", roles...).
		Relation("derivedRelation", "", roles...).
		Relation("anotherDerivedRelation", "", roles...).
		Relation("someRelationTrans", "", roles...).
		Attribute("resource", "", "string").
		Attribute("anotherResource", "", "string").
		Attribute("derivedResource", "", "string").
		Attribute("yetAnotherResource", "", "string").
		Rule(schema.Rule{
			Label: "derived-relation",
			When:  []string{"someRelation", "anotherRelation"},
			Then:  "derivedRelation",
		}).
		Rule(schema.Rule{
			Label: "another-derived-relation",
			When:  []string{"anotherRelation", "yetAnotherRelation"},
			Then:  "anotherDerivedRelation",
		}).
		Rule(schema.Rule{
			Label: "trans-base",
			When:  []string{"someRelation"},
			Then:  "someRelationTrans",
		}).
		Rule(schema.Rule{
			Label: "trans-step",
			When:  []string{"someRelationTrans", "someRelationTrans"},
			Then:  "someRelationTrans",
		}).
		Rule(schema.Rule{
			Label: "derived-resource",
			When:  []string{"someRelation", "resource"},
			Then:  "derivedResource",
		})
}

// ResolutionSchema builds the resolution-plan fixture schema.
func ResolutionSchema(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := ResolutionSchemaBuilder().Build()
	require.NoError(t, err)
	return s
}

// ResolutionSnapshot pairs the fixture schema with ResolutionStatistics.
func ResolutionSnapshot(t testing.TB) *schema.Snapshot {
	t.Helper()
	snap, err := schema.NewSnapshot(ResolutionSchema(t), ResolutionStatistics)
	require.NoError(t, err)
	return snap
}
