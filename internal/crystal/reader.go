package crystal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

// ReadError reports why a crystal file could not be loaded. Reason is
// one of VIOLATION, NOT_FOUND, or INVALID; Detail optionally qualifies
// it. ReadError never crosses a component boundary; ReadSelected
// converts it into a recorded CRYSTAL_READ_DENY event.
type ReadError struct {
	Reason string
	Detail string
}

func (e *ReadError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("crystal read failed: %s (%s)", e.Reason, e.Detail)
	}
	return fmt.Sprintf("crystal read failed: %s", e.Reason)
}

// Read loads and validates a crystal file. It is pure: no history
// events, no budget. Three payload shapes are accepted:
//
//  1. a full {version, kind, payload} object, signature backfilled
//     from expectedSignature when the file omits it;
//  2. a legacy object with both signature and events at top level,
//     wrapped as version "legacy";
//  3. a legacy object with events but no signature, wrapped with
//     expectedSignature when one was supplied.
//
// Anything else fails with INVALID.
func Read(root, rel, expectedSignature string) (map[string]any, error) {
	clean, err := engine.NormalizeRelPath(rel)
	if err != nil {
		return nil, &ReadError{Reason: ir.ReasonViolation}
	}

	full, ok := resolvePath(root, clean, "crystals/")
	if !ok {
		return nil, &ReadError{Reason: ir.ReasonNotFound}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &ReadError{Reason: ir.ReasonNotFound}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ReadError{Reason: ir.ReasonInvalid}
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &ReadError{Reason: ir.ReasonInvalid}
	}

	_, hasVersion := doc["version"]
	_, hasKind := doc["kind"]
	if payload, hasPayload := doc["payload"]; hasVersion && hasKind && hasPayload {
		if _, ok := payload.(map[string]any); !ok {
			return nil, &ReadError{Reason: ir.ReasonInvalid}
		}
		if _, ok := doc["signature"]; !ok && expectedSignature != "" {
			doc["signature"] = expectedSignature
		}
		return doc, nil
	}

	_, hasSignature := doc["signature"]
	_, hasEvents := doc["events"]
	if hasSignature && hasEvents {
		return map[string]any{
			"version":   "legacy",
			"kind":      ir.KindEventDigest,
			"payload":   doc,
			"signature": doc["signature"],
		}, nil
	}
	if hasEvents && expectedSignature != "" {
		return map[string]any{
			"version":   "legacy",
			"kind":      ir.KindEventDigest,
			"payload":   doc,
			"signature": expectedSignature,
		}, nil
	}

	return nil, &ReadError{Reason: ir.ReasonInvalid}
}

// ReadSelected loads the crystal a selection points at, recording the
// outcome in history. An empty path or any load failure becomes a
// CRYSTAL_READ_DENY event; success appends CRYSTAL_READ and returns the
// parsed document. No budget is charged.
func ReadSelected(h engine.Host, selectionPath, expectedSignature string) map[string]any {
	if selectionPath == "" {
		h.Append(ir.Event{
			Type:   ir.TypeCrystalReadDeny,
			Reason: ir.ReasonNotFound,
			Detail: ir.DetailNoSelection,
		})
		return nil
	}

	doc, err := Read(h.Root(), selectionPath, expectedSignature)
	if err != nil {
		ev := ir.Event{
			Type:   ir.TypeCrystalReadDeny,
			Reason: ir.ReasonInvalid,
			Path:   selectionPath,
		}
		var re *ReadError
		if errors.As(err, &re) {
			ev.Reason = re.Reason
			ev.Detail = re.Detail
		}
		h.Append(ev)
		return nil
	}

	kind, _ := doc["kind"].(string)
	signature, _ := doc["signature"].(string)
	h.Append(ir.Event{
		Type:      ir.TypeCrystalRead,
		Path:      selectionPath,
		Kind:      kind,
		Signature: signature,
	})
	return doc
}

// resolvePath maps a normalized relative path to a file on disk, falling
// back to the legacy "storage/" prefix when the literal path is missing
// and the path starts with the given directory prefix.
func resolvePath(root, clean, fallbackPrefix string) (string, bool) {
	candidate := filepath.Join(root, filepath.FromSlash(clean))
	if fileExists(candidate) {
		return candidate, true
	}
	if strings.HasPrefix(clean, fallbackPrefix) {
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
