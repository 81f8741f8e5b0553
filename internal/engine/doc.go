// Package engine owns the live workspace state: an integer value, a
// budget counter, and the append-only event history. Every filesystem
// mutation performed on behalf of the workspace goes through the
// membrane, the path-validation gate that confines writes to the
// workspace root.
//
// The engine is single-writer and fully synchronous. Ordering is total
// and defined by call order; history is never reordered, and only
// Rollback may shorten it.
package engine
