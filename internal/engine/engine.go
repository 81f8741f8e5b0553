package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/prism/internal/ir"
)

// StepCost is the budget charged by a successful Step.
const StepCost = 1

// State is the complete engine state. History is append-only; entries
// are never mutated or reordered once recorded.
type State struct {
	Value   int
	Budget  int
	History []ir.Event
}

// Engine owns a State and a workspace root, and gatekeeps every
// filesystem mutation through the membrane. Exactly one Engine writes
// to a workspace at a time; there is no locking (see package doc).
type Engine struct {
	state State
	root  string
}

// Option configures a new Engine.
type Option func(*Engine)

// WithValue sets the initial value.
func WithValue(v int) Option {
	return func(e *Engine) { e.state.Value = v }
}

// WithBudget sets the initial budget.
func WithBudget(b int) Option {
	return func(e *Engine) { e.state.Budget = b }
}

// WithHistory seeds the history with pre-existing events.
func WithHistory(history []ir.Event) Option {
	return func(e *Engine) {
		e.state.History = append([]ir.Event(nil), history...)
	}
}

// New creates an Engine rooted at the given workspace directory.
// Defaults: value 0, budget 10, empty history.
func New(root string, opts ...Option) *Engine {
	e := &Engine{
		state: State{Budget: 10},
		root:  root,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the workspace root directory.
func (e *Engine) Root() string { return e.root }

// Value returns the current value.
func (e *Engine) Value() int { return e.state.Value }

// Budget returns the remaining budget. Never negative.
func (e *Engine) Budget() int { return e.state.Budget }

// History returns a copy of the event history.
func (e *Engine) History() []ir.Event {
	return append([]ir.Event(nil), e.state.History...)
}

// Append records an event. Collaborating components use this to record
// their skip/deny/success outcomes; the engine itself appends through
// the same path.
func (e *Engine) Append(ev ir.Event) {
	e.state.History = append(e.state.History, ev)
}

// Spend deducts cost from the budget. Callers check affordability first;
// the charging rules per operation live with the operations.
func (e *Engine) Spend(cost int) {
	e.state.Budget -= cost
}

// Step adds input to the value for a cost of StepCost. With insufficient
// budget it records DENY(NO_BUDGET) and changes nothing; a denied step
// is never charged.
func (e *Engine) Step(input int) State {
	if e.state.Budget < StepCost {
		e.Append(ir.Event{
			Type:   ir.TypeDeny,
			Reason: ir.ReasonNoBudget,
			Input:  input,
			Budget: e.state.Budget,
		})
		return e.Snapshot()
	}

	e.state.Value += input
	e.state.Budget -= StepCost
	e.Append(ir.Event{
		Type:        ir.TypeStep,
		Input:       input,
		Result:      e.state.Value,
		Cost:        StepCost,
		BudgetAfter: e.state.Budget,
	})
	return e.Snapshot()
}

// WriteArtifact writes content to a workspace-relative path, creating
// parent directories as needed. A path that fails membrane validation
// records DENY(MEMBRANE_VIOLATION), performs no I/O, and returns
// ErrMembraneViolation. Writes are whole-file; this primitive is free,
// callers that need metering charge budget themselves.
func (e *Engine) WriteArtifact(rel string, content []byte) error {
	clean, err := NormalizeRelPath(rel)
	if err != nil {
		e.Append(ir.Event{
			Type:   ir.TypeDeny,
			Reason: ir.ReasonMembraneViolation,
			Path:   rel,
		})
		return fmt.Errorf("write artifact %q: %w", rel, ErrMembraneViolation)
	}

	target := filepath.Join(e.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("write artifact %q: %w", rel, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("write artifact %q: %w", rel, err)
	}

	e.Append(ir.Event{Type: ir.TypeArtifactWrite, Path: clean, Bytes: len(content)})
	return nil
}

// Snapshot returns a pure copy of the current state.
func (e *Engine) Snapshot() State {
	return State{
		Value:   e.state.Value,
		Budget:  e.state.Budget,
		History: append([]ir.Event(nil), e.state.History...),
	}
}

// Rollback resets the engine to a snapshot. This is reset-to-checkpoint,
// NOT undo: value and budget are restored, and history becomes the
// snapshot's history plus one ROLLBACK marker. Every event appended
// after the snapshot was taken is discarded.
func (e *Engine) Rollback(snap State) State {
	history := append([]ir.Event(nil), snap.History...)
	history = append(history, ir.Event{
		Type:     ir.TypeRollback,
		ToValue:  snap.Value,
		ToBudget: snap.Budget,
	})
	e.state = State{Value: snap.Value, Budget: snap.Budget, History: history}
	return e.Snapshot()
}
