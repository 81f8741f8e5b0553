package packet

import (
	"encoding/json"
	"os"

	"github.com/roach88/prism/internal/ir"
)

// Version is stamped on packet files and the packet index.
const Version = "0.1"

// Intent is the fixed downstream instruction carried by every packet.
const Intent = "Summarize crystal and propose next step"

// Index is the parsed packet index, read with the same tolerant rules
// as the crystal index.
type Index struct {
	Version   string
	NextIndex int
	Packets   []map[string]any
}

// DefaultIndex returns the clean empty packet index.
func DefaultIndex() Index {
	return Index{Version: Version, NextIndex: 0}
}

// LoadIndex reads a packet index tolerantly: missing file, malformed
// JSON, or a non-object document yields the default; non-object entries
// are dropped and counted.
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

	dropped := 0
	if list, ok := doc["packets"].([]any); ok {
		for _, raw := range list {
			entry, ok := raw.(map[string]any)
			if !ok {
				dropped++
				continue
			}
			ix.Packets = append(ix.Packets, entry)
		}
	}
	return ix, dropped
}

// canonicalMap converts the index to its persisted wire shape.
func (ix Index) canonicalMap() map[string]any {
	packets := make([]any, len(ix.Packets))
	for i, entry := range ix.Packets {
		packets[i] = entry
	}
	return map[string]any{
		"version":    ix.Version,
		"next_index": ix.NextIndex,
		"packets":    packets,
	}
}
