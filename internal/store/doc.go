// Package store provides SQLite-backed storage for type instance counts.
//
// Writers accumulate changes in a Delta and apply them with Commit. Every
// commit is recorded in an append-only log alongside the resulting counts:
//   - type_counts: committed count per type label
//   - commits: one row per applied delta, ordered by seq
//   - commit_deltas: requested and applied change per label
//
// Counts never go below zero. A decrement past zero is clamped, and the
// clamped amount is what the log records as applied, so replaying the log
// reproduces the counts exactly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot returns the committed counts as schema.Statistics, ready to pair
// with a schema for planning. Export and Import move counts between stores
// as a checksummed msgpack file.
package store
