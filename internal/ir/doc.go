// Package ir defines the event record types shared by every component,
// the canonical JSON serialization used for all persisted artifacts, and
// the SHA-256 content addressing that identifies crystals.
//
// Canonical JSON is the ONLY serialization used for signature computation.
// Two in-memory values that are semantically equal always produce the same
// bytes, regardless of key insertion order.
package ir
