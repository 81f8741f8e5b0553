// Package packet builds derived artifacts ("packets") that reference a
// selected crystal plus a tail of recent history, and renders them to
// human-readable markdown exports. Packets are indexed; exports are a
// pure function of a packet and are not indexed themselves.
package packet
