// Package crystal compacts new history events into immutable,
// content-addressed snapshot files ("crystals"), maintains the crystal
// index, selects which crystal to act on next, and loads crystal files
// back with validation.
//
// A crystal is identified by its signature: the SHA-256 of the canonical
// serialization of {version, kind, payload}. Crystallizing the same
// slice of new events twice produces the same signature and is skipped
// as a duplicate; no second file is written.
package crystal
