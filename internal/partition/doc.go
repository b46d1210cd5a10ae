// Package partition turns an atom plan into a query plan: an ordered list
// of connected sub-queries.
//
// Non-resolvable atoms that follow each other in the atom plan are answered
// together from stored data, so they are grouped into one sub-query.
// Rule-resolvable atoms each get a sub-query of their own. The group order is
// then refined so that stored, anchored work happens first and inferred
// sub-queries run last, once as many variables as possible are bound.
//
// Atoms the planner does not order (type guards, id and value predicates)
// travel with the first sub-query that binds all their variables.
package partition
