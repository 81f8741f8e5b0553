package packet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/prism/internal/crystal"
	"github.com/roach88/prism/internal/engine"
)

// Load parses a packet file. Pure read helper: no history events, no
// budget. Returns nil when the path is invalid, the file is missing, or
// the document is not an object.
func Load(root, rel string) map[string]any {
	clean, err := engine.NormalizeRelPath(rel)
	if err != nil {
		return nil
	}
	full, ok := resolvePath(root, clean)
	if !ok {
		return nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return doc
}

// LoadLatest scans a packet index for the most recently written packet,
// using the same max-index/last-object rule as crystal selection, and
// loads it. The loaded packet gains a "path" key and, when the file
// omits one, an "index" backfilled from the index entry.
func LoadLatest(root, indexRel string) map[string]any {
	clean, err := engine.NormalizeRelPath(indexRel)
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(clean)))
	if err != nil {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	entries, ok := doc["packets"].([]any)
	if !ok || len(entries) == 0 {
		return nil
	}

	entry := crystal.LatestEntry(entries)
	if entry == nil {
		return nil
	}
	path, ok := entry["path"].(string)
	if !ok {
		return nil
	}
	pkt := Load(root, path)
	if pkt == nil {
		return nil
	}
	pkt["path"] = path
	if _, ok := pkt["index"]; !ok {
		if idx, ok := entry["index"]; ok {
			pkt["index"] = idx
		}
	}
	return pkt
}

// resolvePath maps a normalized relative path to a file on disk,
// falling back to the legacy "storage/" prefix for packets/ paths.
func resolvePath(root, clean string) (string, bool) {
	candidate := filepath.Join(root, filepath.FromSlash(clean))
	if fileExists(candidate) {
		return candidate, true
	}
	if strings.HasPrefix(clean, "packets/") {
		alt := filepath.Join(root, "storage", filepath.FromSlash(clean))
		if fileExists(alt) {
			return alt, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
