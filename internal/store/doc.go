// Package store provides SQLite-backed history of harness runs.
//
// The core harness keeps no state between invocations; the store is an
// optional reporter backend that records each finished run so results can
// be listed and compared later (`fixrun history`).
//
// # Tables
//
//   - runs: one row per run (counts, digest, versions, wall-clock bounds)
//   - fixtures: one row per fixture in report order
//   - assertions: one row per assertion in declaration order
//
// All reads order by the recorded sequence columns, so a run read back
// from the store has exactly the ordering it was reported with.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Deleting a run cascades to its rows
package store
