package crystal

import (
	"encoding/json"
	"os"

	"github.com/roach88/prism/internal/ir"
)

// IndexVersion is stamped on crystal files and the crystal index.
const IndexVersion = "0.2"

// Index is the parsed crystal index. Entries stay map-shaped because the
// index is read tolerantly: unknown keys are preserved and rewritten
// as-is when the index is updated.
type Index struct {
	Version        string
	NextIndex      int
	LastEventIndex int
	Crystals       []map[string]any
}

// DefaultIndex returns the clean empty index used when no index file
// exists yet.
func DefaultIndex() Index {
	return Index{Version: IndexVersion, NextIndex: 0, LastEventIndex: -1}
}

// LoadIndex reads an index file tolerantly: a missing file, malformed
// JSON, or a non-object document yields the default index. Non-object
// entries in the crystals list are dropped; the second return value
// reports how many were dropped so callers can log the repair instead
// of discarding silently.
func LoadIndex(path string) (Index, int) {
	ix := DefaultIndex()
	data, err := os.ReadFile(path)
	if err != nil {
		return ix, 0
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ix, 0
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return ix, 0
	}

	ix.NextIndex = ir.CoerceInt(doc["next_index"], ix.NextIndex)
	ix.LastEventIndex = ir.CoerceInt(doc["last_event_index"], ix.LastEventIndex)

	dropped := 0
	if list, ok := doc["crystals"].([]any); ok {
		for _, raw := range list {
			entry, ok := raw.(map[string]any)
			if !ok {
				dropped++
				continue
			}
			ix.Crystals = append(ix.Crystals, entry)
		}
	}
	return ix, dropped
}

// HasSignature reports whether any indexed entry carries the signature.
func (ix Index) HasSignature(signature string) bool {
	for _, entry := range ix.Crystals {
		if sig, ok := entry["signature"].(string); ok && sig == signature {
			return true
		}
	}
	return false
}

// canonicalMap converts the index to its persisted wire shape.
func (ix Index) canonicalMap() map[string]any {
	crystals := make([]any, len(ix.Crystals))
	for i, entry := range ix.Crystals {
		crystals[i] = entry
	}
	return map[string]any{
		"version":          ix.Version,
		"next_index":       ix.NextIndex,
		"last_event_index": ix.LastEventIndex,
		"crystals":         crystals,
	}
}

// LatestEntry picks the entry with the maximum parseable integer "index"
// field. Entries whose index does not parse are ignored for the
// comparison; when none parses, the last object-shaped entry in list
// order wins. Returns nil when no entry qualifies.
func LatestEntry(entries []any) map[string]any {
	var best map[string]any
	bestIndex := 0
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx, ok := ir.ParseInt(entry["index"])
		if !ok {
			continue
		}
		if best == nil || idx > bestIndex {
			best = entry
			bestIndex = idx
		}
	}
	if best != nil {
		return best
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entry, ok := entries[i].(map[string]any); ok {
			return entry
		}
	}
	return nil
}
