package crystal

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

// DefaultMinNewEvents is the compaction threshold when none is given.
const DefaultMinNewEvents = 5

// Options configures a crystallization run.
type Options struct {
	// Dir is the workspace-relative directory for crystal files and
	// the index. Defaults to "crystals".
	Dir string

	// MinNewEvents is the minimum number of uncompacted events required
	// to write a crystal. Defaults to DefaultMinNewEvents.
	MinNewEvents int

	// Cost is the budget charge. Defaults to 1.
	Cost int

	// Now overrides the timestamp source. Defaults to time.Now.
	// created_at is excluded from the signature, so this only affects
	// the recorded timestamps.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Dir == "" {
		o.Dir = "crystals"
	}
	if o.MinNewEvents == 0 {
		o.MinNewEvents = DefaultMinNewEvents
	}
	if o.Cost == 0 {
		o.Cost = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Crystallize compacts the history events recorded since the last
// CRYSTAL_WRITE into a new crystal file and updates the index. The
// returned path is empty when the run skipped; the recorded CRYSTAL_SKIP
// event carries the reason.
//
// Charging is asymmetric by contract: a NO_BUDGET skip is free, every
// other skip reason consumes the cost, as does success.
func Crystallize(h engine.Host, opts Options) (string, error) {
	opts.defaults()

	history := h.History()
	lastEventIndex := lastCrystalWriteIndex(history)

	if h.Budget() < opts.Cost {
		h.Append(ir.Event{
			Type:           ir.TypeCrystalSkip,
			Reason:         ir.ReasonNoBudget,
			LastEventIndex: lastEventIndex,
		})
		return "", nil
	}

	fromIndex := lastEventIndex + 1
	if fromIndex > len(history) {
		fromIndex = len(history)
	}
	newEvents := history[fromIndex:]

	if len(newEvents) < opts.MinNewEvents {
		h.Append(ir.Event{
			Type:           ir.TypeCrystalSkip,
			Reason:         ir.ReasonNotEnoughNewEvents,
			EventCount:     len(newEvents),
			MinNewEvents:   opts.MinNewEvents,
			LastEventIndex: lastEventIndex,
		})
		h.Spend(opts.Cost)
		return "", nil
	}

	toIndex := fromIndex + len(newEvents) - 1
	payload := map[string]any{
		"events":      ir.CanonicalEvents(newEvents),
		"from_index":  fromIndex,
		"to_index":    toIndex,
		"event_count": len(newEvents),
	}
	signature, err := ir.Signature(IndexVersion, ir.KindEventDigest, payload)
	if err != nil {
		return "", fmt.Errorf("crystallize: %w", err)
	}

	relDir := engine.CleanRelDir(opts.Dir, h.Root())
	indexRel := engine.JoinRel(relDir, "index.json")
	ix, _ := LoadIndex(filepath.Join(h.Root(), filepath.FromSlash(indexRel)))

	if ix.HasSignature(signature) {
		h.Append(ir.Event{
			Type:           ir.TypeCrystalSkip,
			Reason:         ir.ReasonDuplicate,
			Signature:      signature,
			LastEventIndex: lastEventIndex,
		})
		h.Spend(opts.Cost)
		return "", nil
	}

	nextIndex := ix.NextIndex
	crystalRel := engine.JoinRel(relDir, fmt.Sprintf("crystal_%04d.json", nextIndex))
	createdAt := timestamp(opts.Now())

	crystalDoc := map[string]any{
		"version":    IndexVersion,
		"kind":       ir.KindEventDigest,
		"payload":    payload,
		"signature":  signature,
		"created_at": createdAt,
	}
	data, err := ir.MarshalCanonical(crystalDoc)
	if err != nil {
		return "", fmt.Errorf("crystallize: %w", err)
	}

	if err := h.WriteArtifact(crystalRel, data); err != nil {
		if !engine.IsMembraneViolation(err) {
			return "", err
		}
		h.Append(membraneSkip(signature, crystalRel, lastEventIndex))
		h.Spend(opts.Cost)
		return "", nil
	}

	ix.Version = IndexVersion
	ix.NextIndex = nextIndex + 1
	ix.LastEventIndex = toIndex
	ix.Crystals = append(ix.Crystals, map[string]any{
		"index":       nextIndex,
		"path":        crystalRel,
		"signature":   signature,
		"kind":        ir.KindEventDigest,
		"from_index":  fromIndex,
		"to_index":    toIndex,
		"event_count": len(newEvents),
		"created_at":  createdAt,
	})

	indexData, err := ir.MarshalCanonical(ix.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("crystallize: %w", err)
	}
	if err := h.WriteArtifact(indexRel, indexData); err != nil {
		if !engine.IsMembraneViolation(err) {
			return "", err
		}
		h.Append(membraneSkip(signature, indexRel, lastEventIndex))
		h.Spend(opts.Cost)
		return "", nil
	}

	h.Append(ir.Event{
		Type:           ir.TypeCrystalWrite,
		Index:          nextIndex,
		Path:           crystalRel,
		Signature:      signature,
		EventCount:     len(newEvents),
		FromIndex:      fromIndex,
		LastEventIndex: toIndex,
	})
	h.Spend(opts.Cost)
	return crystalRel, nil
}

// lastCrystalWriteIndex scans history backward for the most recent
// CRYSTAL_WRITE and returns its last_event_index, or -1 when the
// history has never been compacted.
func lastCrystalWriteIndex(history []ir.Event) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Type == ir.TypeCrystalWrite {
			return history[i].LastEventIndex
		}
	}
	return -1
}

func membraneSkip(signature, path string, lastEventIndex int) ir.Event {
	return ir.Event{
		Type:           ir.TypeCrystalSkip,
		Reason:         ir.ReasonOther,
		Detail:         ir.DetailMembraneViolation,
		Signature:      signature,
		Path:           path,
		LastEventIndex: lastEventIndex,
	}
}

// timestamp formats a created_at value: UTC RFC 3339 with a Z suffix.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}
