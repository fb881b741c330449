// Package store persists game aggregates in sqlite.
//
// The store is the only shared mutable state in the system. Its contract
// with the rest of the code is deliberately coarse: every mutator
// re-reads and returns the complete aggregate, so callers never reason
// about partially updated in-memory copies and concurrent connections
// converge on whatever the database says.
package store
