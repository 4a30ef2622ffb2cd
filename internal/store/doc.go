// Package store is the SQLite row-storage collaborator for live records.
//
// Each entity type owns one table, described by a schema.TableSpec and
// created on demand by EnsureTable. Records are written with a single
// INSERT ... ON CONFLICT statement per upsert.Spec and read back with
// filtered selects.
//
// # Ordering guard
//
// When a type declares a primary ordering timestamp, the conflict update
// only applies if the incoming timestamp is not older than the stored one.
// A rejected update returns no row, which callers treat as "not saved".
//
// # Deterministic reads
//
// Every select ends with ORDER BY rowid, so rows with equal sort keys are
// returned in insertion order.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// The live_tables table records the encoded TableSpec and its hash for each
// ensured table, so a changed definition adds its new columns on the next run.
package store
