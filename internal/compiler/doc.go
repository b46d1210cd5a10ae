// Package compiler turns CUE schema files into planner schemas.
//
// A schema file declares types, rules and, optionally, stored instance
// counts:
//
//	types: {
//		person:     {kind: "entity"}
//		employment: {kind: "relation", roles: ["employee", "employer"]}
//		name:       {kind: "attribute", value: "string"}
//	}
//	rules: {
//		"transitive-employment": {
//			when: ["employment", "employment"]
//			then: "employment"
//		}
//	}
//	statistics: {person: 100, employment: 40}
//
// CompileSchema stops at the first problem and reports it with its CUE
// position. Validate collects every problem it can find, for editors and
// the validate command.
package compiler
