// Package atom defines the pattern atoms a conjunctive query is made of.
//
// An atom is one elementary constraint over query variables:
//   - Relation: a relation instance with typed role players
//   - Attribute: ownership of an attribute, by variable or literal value
//   - Isa: a type constraint on a variable
//   - IDPredicate: a variable pinned to one concrete instance
//   - Comparison: a value predicate between a variable and a variable or literal
//
// Atom is a sealed interface. The marker method keeps implementations in
// this package so planners can switch exhaustively over the variants.
//
// Atoms carry no schema knowledge. Type labels are checked and atoms are
// annotated with cost information by package query.
package atom
