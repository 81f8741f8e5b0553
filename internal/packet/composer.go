package packet

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/roach88/prism/internal/crystal"
	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

// ComposeOptions configures packet construction.
type ComposeOptions struct {
	// Dir is the workspace-relative packet directory. Defaults to
	// "packets".
	Dir string

	// TailN is how many trailing history events the packet carries.
	// Zero or negative means none. Defaults to 20 when unset (-1 for
	// an explicit empty tail).
	TailN int

	// Cost is the budget charge. Defaults to 1.
	Cost int

	// Now overrides the timestamp source. Defaults to time.Now.
	Now func() time.Time
}

func (o *ComposeOptions) defaults() {
	if o.Dir == "" {
		o.Dir = "packets"
	}
	if o.TailN == 0 {
		o.TailN = 20
	}
	if o.Cost == 0 {
		o.Cost = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Compose builds a packet referencing the selected crystal, persists it
// through the membrane, and updates the packet index. The returned path
// is empty when the run skipped; the recorded PACKET_SKIP event carries
// the reason.
//
// Charging follows the crystallizer's contract: NO_BUDGET skips are
// free, every other skip and success consume the cost.
func Compose(h engine.Host, sel *crystal.Selection, crystalDoc map[string]any, opts ComposeOptions) (string, error) {
	opts.defaults()

	history := h.History()

	if h.Budget() < opts.Cost {
		h.Append(ir.Event{Type: ir.TypePacketSkip, Reason: ir.ReasonNoBudget})
		return "", nil
	}
	if sel == nil || sel.Path == "" {
		h.Append(ir.Event{Type: ir.TypePacketSkip, Reason: ir.ReasonNoSelection})
		h.Spend(opts.Cost)
		return "", nil
	}
	if len(crystalDoc) == 0 {
		h.Append(ir.Event{Type: ir.TypePacketSkip, Reason: ir.ReasonNoCrystal})
		h.Spend(opts.Cost)
		return "", nil
	}

	relDir := engine.CleanRelDir(opts.Dir, h.Root())
	indexRel := engine.JoinRel(relDir, "index.json")
	ix, _ := LoadIndex(filepath.Join(h.Root(), filepath.FromSlash(indexRel)))

	nextIndex := ix.NextIndex
	packetRel := engine.JoinRel(relDir, fmt.Sprintf("packet_%04d.json", nextIndex))
	createdAt := timestamp(opts.Now())
	kind, _ := crystalDoc["kind"].(string)

	tail := []any{}
	if opts.TailN > 0 {
		start := len(history) - opts.TailN
		if start < 0 {
			start = 0
		}
		tail = ir.CanonicalEvents(history[start:])
	}

	doc := map[string]any{
		"index":      nextIndex,
		"version":    Version,
		"created_at": createdAt,
		"crystal": map[string]any{
			"path":      sel.Path,
			"signature": sel.Signature,
			"kind":      kind,
		},
		"history_tail": tail,
		"intent":       Intent,
	}
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("compose packet: %w", err)
	}

	if err := h.WriteArtifact(packetRel, data); err != nil {
		if !engine.IsMembraneViolation(err) {
			return "", err
		}
		h.Append(membraneSkip(ir.TypePacketSkip, packetRel))
		h.Spend(opts.Cost)
		return "", nil
	}

	ix.Version = Version
	ix.NextIndex = nextIndex + 1
	ix.Packets = append(ix.Packets, map[string]any{
		"index":             nextIndex,
		"path":              packetRel,
		"bytes":             len(data),
		"crystal_signature": sel.Signature,
		"created_at":        createdAt,
	})

	indexData, err := ir.MarshalCanonical(ix.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("compose packet: %w", err)
	}
	if err := h.WriteArtifact(indexRel, indexData); err != nil {
		if !engine.IsMembraneViolation(err) {
			return "", err
		}
		h.Append(membraneSkip(ir.TypePacketSkip, indexRel))
		h.Spend(opts.Cost)
		return "", nil
	}

	h.Append(ir.Event{
		Type:             ir.TypePacketWrite,
		Index:            nextIndex,
		Path:             packetRel,
		Bytes:            len(data),
		CrystalSignature: sel.Signature,
	})
	h.Spend(opts.Cost)
	return packetRel, nil
}

func membraneSkip(t ir.Type, path string) ir.Event {
	return ir.Event{
		Type:   t,
		Reason: ir.ReasonOther,
		Detail: ir.DetailMembraneViolation,
		Path:   path,
	}
}

// timestamp formats a created_at value: UTC RFC 3339 with a Z suffix.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}
