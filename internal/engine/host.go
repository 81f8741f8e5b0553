package engine

import "github.com/roach88/prism/internal/ir"

// Host is the capability surface collaborating components require from
// the workspace: read budget and history, append events, spend budget,
// and write artifacts through the membrane. Components accept a Host
// rather than probing a concrete type; *Engine and View are the two
// adapters, resolved at the call site.
type Host interface {
	Root() string
	Budget() int
	History() []ir.Event
	Append(ev ir.Event)
	Spend(cost int)
	WriteArtifact(rel string, content []byte) error
}

// View is a delegate holding an Engine. It forwards every Host method,
// letting callers that hold state indirectly (CLI sessions, test
// fixtures) satisfy Host without exposing the Engine itself.
type View struct {
	Engine *Engine
}

// Root implements Host.
func (v View) Root() string { return v.Engine.Root() }

// Budget implements Host.
func (v View) Budget() int { return v.Engine.Budget() }

// History implements Host.
func (v View) History() []ir.Event { return v.Engine.History() }

// Append implements Host.
func (v View) Append(ev ir.Event) { v.Engine.Append(ev) }

// Spend implements Host.
func (v View) Spend(cost int) { v.Engine.Spend(cost) }

// WriteArtifact implements Host.
func (v View) WriteArtifact(rel string, content []byte) error {
	return v.Engine.WriteArtifact(rel, content)
}

var (
	_ Host = (*Engine)(nil)
	_ Host = View{}
)
