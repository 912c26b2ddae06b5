// Package store provides SQLite-backed storage for records and their
// update history.
//
// Tables:
//   - records: one row per (kind, id) with canonical JSON fields, a
//     revision counter and a content digest
//   - record_uniques: values of unique fields, guarded by a UNIQUE
//     constraint
//   - update_log: one row per update call, including rejected ones
//
// # Critical Patterns
//
// Optimistic concurrency: SaveRecord only writes when the stored revision
// matches the entity's. A mismatch is ErrStale.
//
// Storage-level uniqueness: validation asks IsTaken first, but two writers
// can race past that check. The record_uniques constraint catches the
// loser, whose save fails with ErrUniqueViolation. The update workflow
// treats that as an unexpected persistence failure.
//
// Integrity: LoadRecord recomputes the digest. A row whose digest does not
// match its fields loads as an unloaded entity.
//
// Deterministic reads: ReadUpdateLog orders by seq ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
