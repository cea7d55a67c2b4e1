// Package ledger holds the persistent state of the hunt: the dedup ledger
// (first owner of every perceptual hash and decoded value) and the scoring
// ledger (claims, points and lifetime points per user).
//
// Both ledgers sit on a Store, a namespaced key-value abstraction offering
// write-if-absent and atomic increment. GormStore persists to SQLite or MySQL
// in one ledger_entries table; MemoryStore keeps everything in process.
//
// Atomicity is per key and independent of the worker lock: concurrent
// increments never lose an update and a recorded owner is never replaced.
package ledger
