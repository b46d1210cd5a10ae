// Package harness runs planning scenarios.
//
// A scenario is a YAML file naming a CUE schema, a query written as one
// statement per atom, and assertions on the plans:
//
//	name: substitution_chain
//	description: An id at the end of a chain pulls planning toward it
//	schema: ../schema/resolution.cue
//	repeat: 20
//	query:
//	  - relation: {type: someRelation, players: [{role: someRole, var: x}, {role: otherRole, var: y}]}
//	  - id: {var: y, id: V1}
//	assertions:
//	  - type: query_count
//	    count: 1
//
// Every run plans the query Repeat times and fails unless all runs produce
// the same atom plan and query plan. Completeness and connectivity of the
// plans are checked by the planner and partitioner themselves; assertions
// add scenario-specific ordering checks.
//
// Golden files under testdata/golden hold the Explain text of a result.
package harness
