// Package planner orders the selectable atoms of a query into an atom plan.
//
// The planner grows the plan greedily from a start atom. At each step it
// takes the best-ranked remaining atom that shares a variable with what is
// already planned, re-ranking every candidate against the grown set of bound
// variables. When no connected candidate is left but atoms remain, the query
// is disconnected and a new component starts from the best remaining atom.
//
// CRITICAL: Every plan is checked before it is returned. A plan that drops
// or duplicates an atom, or that breaks variable connectivity inside a
// component, is a planner bug and is reported as an *InvariantError rather
// than returned.
//
// Planning is pure. A Planner holds no per-query state and may be used from
// multiple goroutines.
package planner
