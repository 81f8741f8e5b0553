package ir

// Type identifies an event variant. The set is closed: every variant the
// engine or its collaborators can record is listed here, and CanonicalMap
// switches exhaustively over it.
type Type string

const (
	TypeStep              Type = "STEP"
	TypeDeny              Type = "DENY"
	TypeArtifactWrite     Type = "ARTIFACT_WRITE"
	TypeRollback          Type = "ROLLBACK"
	TypeCrystalWrite      Type = "CRYSTAL_WRITE"
	TypeCrystalSkip       Type = "CRYSTAL_SKIP"
	TypeCrystalSelect     Type = "CRYSTAL_SELECT"
	TypeCrystalSelectSkip Type = "CRYSTAL_SELECT_SKIP"
	TypeCrystalRead       Type = "CRYSTAL_READ"
	TypeCrystalReadDeny   Type = "CRYSTAL_READ_DENY"
	TypePacketWrite       Type = "PACKET_WRITE"
	TypePacketSkip        Type = "PACKET_SKIP"
	TypeExportWrite       Type = "EXPORT_WRITE"
	TypeExportSkip        Type = "EXPORT_SKIP"
)

// Reason codes recorded on skip and deny events.
const (
	ReasonNoBudget           = "NO_BUDGET"
	ReasonMembraneViolation  = "MEMBRANE_VIOLATION"
	ReasonNotEnoughNewEvents = "NOT_ENOUGH_NEW_EVENTS"
	ReasonDuplicate          = "DUPLICATE"
	ReasonOther              = "OTHER"
	ReasonNoCrystals         = "NO_CRYSTALS"
	ReasonLatest             = "LATEST"
	ReasonViolation          = "VIOLATION"
	ReasonNotFound           = "NOT_FOUND"
	ReasonInvalid            = "INVALID"
	ReasonNoSelection        = "NO_SELECTION"
	ReasonNoCrystal          = "NO_CRYSTAL"
	ReasonInvalidPacket      = "INVALID_PACKET"
)

// Detail codes qualifying a reason.
const (
	DetailMembraneViolation = "MEMBRANE_VIOLATION"
	DetailNoSelection       = "NO_SELECTION"
)

// Event is a single history record. Exactly one Type is set; which of the
// remaining fields are meaningful depends on the variant, and CanonicalMap
// is the authority on the persisted shape of each.
type Event struct {
	Type   Type
	Reason string
	Detail string

	Input       int
	Result      int
	Cost        int
	BudgetAfter int
	Budget      int

	Path  string
	Bytes int

	ToValue  int
	ToBudget int

	Index            int
	Signature        string
	Kind             string
	EventCount       int
	FromIndex        int
	LastEventIndex   int
	MinNewEvents     int
	PacketIndex      int
	CrystalSignature string
}

// CanonicalMap converts the event to its persisted wire shape. The switch
// is exhaustive over Type; adding a variant without a case here is a bug
// the tests catch.
func (e Event) CanonicalMap() map[string]any {
	switch e.Type {
	case TypeStep:
		return map[string]any{
			"type":         string(e.Type),
			"input":        e.Input,
			"result":       e.Result,
			"cost":         e.Cost,
			"budget_after": e.BudgetAfter,
		}
	case TypeDeny:
		m := map[string]any{"type": string(e.Type), "reason": e.Reason}
		switch e.Reason {
		case ReasonNoBudget:
			m["input"] = e.Input
			m["budget"] = e.Budget
		case ReasonMembraneViolation:
			m["path"] = e.Path
		}
		return m
	case TypeArtifactWrite:
		return map[string]any{"type": string(e.Type), "path": e.Path, "bytes": e.Bytes}
	case TypeRollback:
		return map[string]any{"type": string(e.Type), "to_value": e.ToValue, "to_budget": e.ToBudget}
	case TypeCrystalWrite:
		return map[string]any{
			"type":             string(e.Type),
			"index":            e.Index,
			"path":             e.Path,
			"signature":        e.Signature,
			"event_count":      e.EventCount,
			"from_index":       e.FromIndex,
			"last_event_index": e.LastEventIndex,
		}
	case TypeCrystalSkip:
		m := map[string]any{
			"type":             string(e.Type),
			"reason":           e.Reason,
			"last_event_index": e.LastEventIndex,
		}
		switch e.Reason {
		case ReasonNotEnoughNewEvents:
			m["event_count"] = e.EventCount
			m["min_new_events"] = e.MinNewEvents
		case ReasonDuplicate:
			m["signature"] = e.Signature
		case ReasonOther:
			m["detail"] = e.Detail
			m["signature"] = e.Signature
			m["path"] = e.Path
		}
		return m
	case TypeCrystalSelect:
		return map[string]any{
			"type":      string(e.Type),
			"reason":    e.Reason,
			"index":     e.Index,
			"path":      e.Path,
			"signature": e.Signature,
		}
	case TypeCrystalSelectSkip:
		return map[string]any{"type": string(e.Type), "reason": e.Reason}
	case TypeCrystalRead:
		return map[string]any{
			"type":      string(e.Type),
			"path":      e.Path,
			"kind":      e.Kind,
			"signature": e.Signature,
		}
	case TypeCrystalReadDeny:
		m := map[string]any{"type": string(e.Type), "reason": e.Reason}
		if e.Path != "" {
			m["path"] = e.Path
		}
		if e.Detail != "" {
			m["detail"] = e.Detail
		}
		return m
	case TypePacketWrite:
		return map[string]any{
			"type":              string(e.Type),
			"index":             e.Index,
			"path":              e.Path,
			"bytes":             e.Bytes,
			"crystal_signature": e.CrystalSignature,
		}
	case TypePacketSkip, TypeExportSkip:
		m := map[string]any{"type": string(e.Type), "reason": e.Reason}
		if e.Reason == ReasonOther {
			m["detail"] = e.Detail
			m["path"] = e.Path
		}
		return m
	case TypeExportWrite:
		return map[string]any{
			"type":              string(e.Type),
			"path":              e.Path,
			"bytes":             e.Bytes,
			"packet_index":      e.PacketIndex,
			"crystal_signature": e.CrystalSignature,
		}
	default:
		return map[string]any{"type": string(e.Type)}
	}
}

// CanonicalEvents converts a history slice to its persisted wire shape.
func CanonicalEvents(events []Event) []any {
	out := make([]any, len(events))
	for i, ev := range events {
		out[i] = ev.CanonicalMap()
	}
	return out
}

// LastReason scans history backward for the most recent event whose type
// is in the given set and returns its reason. Used by orchestrators to
// surface why a pipeline stage declined to act.
func LastReason(history []Event, types ...Type) string {
	for i := len(history) - 1; i >= 0; i-- {
		for _, t := range types {
			if history[i].Type == t {
				return history[i].Reason
			}
		}
	}
	return ""
}
