package graph

import (
	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// ActionType names an action kind.
type ActionType string

const (
	ActionAdd      ActionType = "ADD"
	ActionRemove   ActionType = "REMOVE"
	ActionClear    ActionType = "CLEAR"
	ActionStep     ActionType = "STEP"
	ActionSetStart ActionType = "SET_START"
	ActionSetRoot  ActionType = "SET_ROOT"
	ActionSetSize  ActionType = "SET_SIZE"
)

// Action is a request to change a graph. The set of actions is closed: only
// the types in this package implement it.
type Action interface {
	Type() ActionType
	isAction()
}

// StatePatch adds or updates one state. Nil fields are left as they are on
// an existing state and take their zero value on a new one.
type StatePatch struct {
	ID       ID
	Ending   *bool
	Location *geom.Point
	Boundary BoundaryRef
}

// TransitionPatch adds or updates one transition.
type TransitionPatch struct {
	ID     ID
	Start  *Endpoint
	End    *Endpoint
	Symbol *string
	Line   LineRef
}

// TIPPatch updates the transition in progress. ClearStart drops the start
// endpoint before Start is applied.
type TIPPatch struct {
	Active     *bool
	Start      *Endpoint
	ClearStart bool
	End        *geom.Point
	Line       LineRef
}

// Add upserts states and transitions and patches the transition in progress.
type Add struct {
	States               []StatePatch
	Transitions          []TransitionPatch
	TransitionInProgress *TIPPatch
}

// Remove deletes states and transitions by id. Transitions attached to a
// removed state are removed with it.
type Remove struct {
	IDs []string
}

// Clear drops every state and transition.
type Clear struct{}

// Step is reserved for stepping a simulation on the canvas and does nothing.
type Step struct{}

// SetStart sets the start state. A nil ID, or one that names no state,
// clears it.
type SetStart struct {
	ID *string
}

// SetRoot replaces the viewport reference.
type SetRoot struct {
	Root ViewportRef
}

// SetSize replaces the viewport size, either with a literal value or with
// the result of Update applied to the current size. Size wins if both are set.
type SetSize struct {
	Size   *geom.Size
	Update func(geom.Size) geom.Size
}

func (Add) Type() ActionType      { return ActionAdd }
func (Remove) Type() ActionType   { return ActionRemove }
func (Clear) Type() ActionType    { return ActionClear }
func (Step) Type() ActionType     { return ActionStep }
func (SetStart) Type() ActionType { return ActionSetStart }
func (SetRoot) Type() ActionType  { return ActionSetRoot }
func (SetSize) Type() ActionType  { return ActionSetSize }

func (Add) isAction()      {}
func (Remove) isAction()   {}
func (Clear) isAction()    {}
func (Step) isAction()     {}
func (SetStart) isAction() {}
func (SetRoot) isAction()  {}
func (SetSize) isAction()  {}

// AddState is shorthand for an Add carrying the given state patches.
func AddState(patches ...StatePatch) Add {
	return Add{States: patches}
}

// AddTransition is shorthand for an Add carrying the given transition patches.
func AddTransition(patches ...TransitionPatch) Add {
	return Add{Transitions: patches}
}

// PatchFromState builds a patch carrying every field of s.
func PatchFromState(s State) StatePatch {
	ending, loc := s.Ending, s.Location
	return StatePatch{ID: s.ID, Ending: &ending, Location: &loc, Boundary: s.Boundary}
}

// PatchFromTransition builds a patch carrying every field of t.
func PatchFromTransition(t Transition) TransitionPatch {
	start, end, sym := t.Start, t.End, t.Symbol
	return TransitionPatch{ID: t.ID, Start: &start, End: &end, Symbol: &sym, Line: t.Line}
}
