// Package jsondb provides concurrent-safe persistence of JSON documents on a
// local filesystem.
//
// # Overview
//
// A document is one JSON file, the unit of atomicity. [Store] reads and writes
// documents relative to a root directory. [List] and [Map] layer typed
// collections of records with integer ids on top of a Store.
//
// # Concurrency: Pessimistic Locking
//
// Every document has an advisory flock(2) lock on a sidecar file named
// ".<name>.lock" in the same directory. Readers take it shared, writers take it
// exclusive. [Store.Update] holds the exclusive lock for the entire
// read-modify-write cycle so that two writers can never decide on the same
// stale state. Locks are per path: documents never contend with each other.
//
// Lock acquisition is bounded by [Store.LockTimeout]; waiting longer returns
// [ErrLockTimeout].
//
// # Crash safety
//
// Documents are written to a temporary file in the same directory, synced and
// renamed over the target. A crash leaves either the previous or the new
// document, never a truncated one.
//
// # Ids
//
// Record ids are assigned as max(id)+1 from freshly loaded state. The sidecar
// lock file also stores the highest id ever assigned so that deleting the last
// record does not make its id available again.
//
// # File Format
//
// Documents are indented JSON with a trailing newline so they stay readable
// when inspected by hand.
package jsondb
