// Package query builds conjunctive queries over a schema snapshot and
// annotates their atoms with the facts the planner ranks them by.
//
// A Query splits its atoms into two groups:
//   - selectable atoms, which the planner orders (relations, attributes,
//     and type constraints that carry information of their own)
//   - attached atoms, which only filter the answers of the selectable atoms
//     covering their variables (type guards, id and value predicates)
//
// Each selectable atom is wrapped in an *Atom whose annotations
// (resolvability, identifier anchoring, specificity, cost estimates) are
// computed once, when the query is built. Queries and atoms are immutable
// and safe to share between goroutines.
package query
