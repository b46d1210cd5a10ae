// Package schema holds the read-only knowledge a planning invocation
// consults: the type hierarchy, the rules, and per-type instance counts.
//
// A Schema is built once with a Builder and never mutated. A Snapshot pairs
// a Schema with Statistics and the Estimator used for inferred types; it is
// passed explicitly to every planning call and may be shared by concurrent
// planners.
//
// Rule semantics are not evaluated here. Rules are only inspected for
// which types they conclude, which types they depend on, and whether those
// dependencies are cyclic.
package schema
