package packet

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

// ExportOptions configures markdown export.
type ExportOptions struct {
	// Dir is the workspace-relative export directory. Defaults to
	// "exports".
	Dir string

	// Cost is the budget charge. Defaults to 1.
	Cost int
}

func (o *ExportOptions) defaults() {
	if o.Dir == "" {
		o.Dir = "exports"
	}
	if o.Cost == 0 {
		o.Cost = 1
	}
}

// ExportMarkdown renders a packet to a fixed markdown layout and writes
// it through the membrane as exports/packet_%04d.md. The packet's index
// must be derivable from its "index" field or from a packet_<n> filename
// stem in its "path"; otherwise EXPORT_SKIP(INVALID_PACKET) is recorded
// and the cost is still charged. NO_BUDGET skips are free.
func ExportMarkdown(h engine.Host, pkt map[string]any, opts ExportOptions) (string, error) {
	opts.defaults()

	if h.Budget() < opts.Cost {
		h.Append(ir.Event{Type: ir.TypeExportSkip, Reason: ir.ReasonNoBudget})
		return "", nil
	}

	packetIndex, ok := packetIndex(pkt)
	if !ok {
		h.Append(ir.Event{Type: ir.TypeExportSkip, Reason: ir.ReasonInvalidPacket})
		h.Spend(opts.Cost)
		return "", nil
	}

	relDir := engine.CleanRelDir(opts.Dir, h.Root())
	exportRel := engine.JoinRel(relDir, fmt.Sprintf("packet_%04d.md", packetIndex))

	markdown := renderMarkdown(pkt, packetIndex)
	data := []byte(markdown)

	if err := h.WriteArtifact(exportRel, data); err != nil {
		if !engine.IsMembraneViolation(err) {
			return "", err
		}
		h.Append(membraneSkip(ir.TypeExportSkip, exportRel))
		h.Spend(opts.Cost)
		return "", nil
	}

	crystalSignature := ""
	if cry, ok := pkt["crystal"].(map[string]any); ok {
		crystalSignature, _ = cry["signature"].(string)
	}
	h.Append(ir.Event{
		Type:             ir.TypeExportWrite,
		Path:             exportRel,
		Bytes:            len(data),
		PacketIndex:      packetIndex,
		CrystalSignature: crystalSignature,
	})
	h.Spend(opts.Cost)
	return exportRel, nil
}

// packetIndex derives the packet's index from an explicit "index" field
// or from a packet_<n> filename stem recorded in "path".
func packetIndex(pkt map[string]any) (int, bool) {
	if raw, ok := pkt["index"]; ok {
		return ir.ParseInt(raw)
	}
	p, ok := pkt["path"].(string)
	if !ok {
		return 0, false
	}
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	suffix, ok := strings.CutPrefix(stem, "packet_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || suffix == "" {
		return 0, false
	}
	return n, true
}

// renderMarkdown produces the export body: a pure deterministic
// function of the packet.
func renderMarkdown(pkt map[string]any, packetIndex int) string {
	crystalPath, crystalKind, crystalSignature := any(nil), any(nil), any(nil)
	if cry, ok := pkt["crystal"].(map[string]any); ok {
		crystalPath = cry["path"]
		crystalKind = cry["kind"]
		crystalSignature = cry["signature"]
	}

	lines := []string{
		fmt.Sprintf("# Packet %d", packetIndex),
		fmt.Sprintf("- Created: %v", pkt["created_at"]),
		fmt.Sprintf("- Crystal: %v (kind=%v, signature=%v)", crystalPath, crystalKind, crystalSignature),
		fmt.Sprintf("- Intent: %v", pkt["intent"]),
		"",
	}

	if payload, ok := pkt["payload"].(map[string]any); ok {
		summary, hasSummary := payload["summary"]
		metrics, hasMetrics := payload["metrics"]
		if hasSummary || hasMetrics {
			lines = append(lines, "## Crystal payload")
			if hasSummary {
				lines = append(lines, fmt.Sprintf("- Summary: %v", summary))
			}
			if hasMetrics {
				lines = append(lines, fmt.Sprintf("- Metrics: %v", metrics))
			}
			lines = append(lines, "")
		}
	}

	tail := pkt["history_tail"]
	if tail == nil {
		tail = []any{}
	}
	tailJSON, err := ir.MarshalCanonical(tail)
	if err != nil {
		tailJSON = []byte("[]")
	}

	lines = append(lines, "## History tail", "```json", string(tailJSON), "```")
	return strings.Join(lines, "\n") + "\n"
}
