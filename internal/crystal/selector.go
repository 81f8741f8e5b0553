package crystal

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

// StrategyLatest is the only defined selection strategy.
const StrategyLatest = "latest"

// Selection identifies the crystal chosen by Select.
type Selection struct {
	Index     int
	Path      string
	Signature string
}

// Select chooses which crystal to act on next. Only the "latest"
// strategy is defined; any other strategy, an empty crystal list, or a
// missing/corrupt index records CRYSTAL_SELECT_SKIP(NO_CRYSTALS) and
// returns ok=false.
//
// After picking, the chosen crystal file is re-read for a possibly
// fresher signature; the file-derived signature wins over the
// index-recorded one. Selection is free; no budget is charged.
func Select(h engine.Host, indexRel, strategy string) (Selection, bool) {
	rel := engine.CleanRelDir(indexRel, h.Root())
	clean, err := engine.NormalizeRelPath(rel)
	if err != nil {
		return skipSelect(h)
	}

	entries := loadRawEntries(filepath.Join(h.Root(), filepath.FromSlash(clean)))
	if len(entries) == 0 {
		return skipSelect(h)
	}
	if strategy != StrategyLatest {
		return skipSelect(h)
	}

	entry := LatestEntry(entries)
	if entry == nil {
		return skipSelect(h)
	}

	path, _ := entry["path"].(string)
	entrySignature, _ := entry["signature"].(string)
	signature := fileSignature(h.Root(), path, entrySignature)
	if signature == "" {
		signature = entrySignature
	}

	sel := Selection{
		Index:     ir.CoerceInt(entry["index"], -1),
		Path:      path,
		Signature: signature,
	}
	h.Append(ir.Event{
		Type:      ir.TypeCrystalSelect,
		Reason:    ir.ReasonLatest,
		Index:     sel.Index,
		Path:      sel.Path,
		Signature: sel.Signature,
	})
	return sel, true
}

func skipSelect(h engine.Host) (Selection, bool) {
	h.Append(ir.Event{Type: ir.TypeCrystalSelectSkip, Reason: ir.ReasonNoCrystals})
	return Selection{}, false
}

// loadRawEntries reads the crystals list without shape filtering;
// LatestEntry applies the object-shape rule.
func loadRawEntries(path string) []any {
	data, err := os.ReadFile(path)
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
	entries, _ := doc["crystals"].([]any)
	return entries
}

// fileSignature re-reads the crystal file and returns its recorded
// signature, or "" when the file cannot be loaded.
func fileSignature(root, rel, expected string) string {
	if rel == "" {
		return ""
	}
	doc, err := Read(root, rel, expected)
	if err != nil {
		return ""
	}
	sig, _ := doc["signature"].(string)
	return sig
}
