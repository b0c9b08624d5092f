// Package graph provides the editable state-machine graph: states,
// transitions, the start pointer and the scratch transition being drawn,
// together with the reducer that is the only way to change it.
//
// A Graph value is a snapshot. Reduce never modifies its input; it returns a
// new Graph that may share unchanged slices with the old one, so snapshots
// must be treated as read-only once produced.
package graph

import (
	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// BoundaryRef is a handle to the rendered shape of a state. It is owned by
// the rendering layer and is only ever asked for its current bounds; ok is
// false while the shape is not mounted.
type BoundaryRef interface {
	BoundingRect() (r geom.Rect, ok bool)
}

// LineRef is a handle to the rendered line of a transition.
type LineRef interface {
	BoundingRect() (r geom.Rect, ok bool)
}

// ViewportRef is a handle to the rendered viewport. ScreenCTM returns the
// transform from local to client coordinates.
type ViewportRef interface {
	ScreenCTM() (m geom.Matrix, ok bool)
}

// State is a node of the graph, drawn as a circle centred on Location.
type State struct {
	ID       ID
	Ending   bool
	Location geom.Point
	Boundary BoundaryRef
}

// Endpoint attaches one end of a transition to a state. Offset sets the
// direction in which the edge leaves or enters the state's circle.
type Endpoint struct {
	State  string     `json:"state"`
	Offset geom.Point `json:"offset"`
}

// Transition is a labelled edge between two states. An empty Symbol marks a
// transition that is still waiting for its label.
type Transition struct {
	ID     ID
	Start  Endpoint
	End    Endpoint
	Symbol string
	Line   LineRef
}

// TransitionInProgress is the edge being dragged from a state toward the
// pointer. It is never persisted.
type TransitionInProgress struct {
	Active bool
	Start  *Endpoint
	End    geom.Point
	Line   LineRef
}

// Graph is the aggregate root of the editor model.
type Graph struct {
	Size                 geom.Size
	Starting             *string
	States               []State
	Transitions          []Transition
	TransitionInProgress TransitionInProgress
	Root                 ViewportRef
}

// DefaultSize is the viewport of a blank graph.
var DefaultSize = geom.Size{MinX: 0, MinY: 0, Width: 200, Height: 200}

// Blank returns an empty graph.
func Blank() Graph {
	return Graph{
		Size:        DefaultSize,
		States:      []State{},
		Transitions: []Transition{},
	}
}

// StartID returns the start state id, or "" when none is set.
func (g Graph) StartID() string {
	if g.Starting == nil {
		return ""
	}
	return *g.Starting
}

// StateIndex returns the index of the state with the given id, or -1.
func (g Graph) StateIndex(id string) int {
	for i, s := range g.States {
		if v, ok := s.ID.Value(); ok && v == id {
			return i
		}
	}
	return -1
}

// TransitionIndex returns the index of the transition with the given id, or -1.
func (g Graph) TransitionIndex(id string) int {
	for i, t := range g.Transitions {
		if v, ok := t.ID.Value(); ok && v == id {
			return i
		}
	}
	return -1
}

// State looks up a state by id.
func (g Graph) State(id string) (State, bool) {
	if i := g.StateIndex(id); i >= 0 {
		return g.States[i], true
	}
	return State{}, false
}

// Transition looks up a transition by id.
func (g Graph) Transition(id string) (Transition, bool) {
	if i := g.TransitionIndex(id); i >= 0 {
		return g.Transitions[i], true
	}
	return Transition{}, false
}

// HasTransitionBetween reports whether an edge from start to end exists.
func (g Graph) HasTransitionBetween(start, end string) bool {
	for _, t := range g.Transitions {
		if t.Start.State == start && t.End.State == end {
			return true
		}
	}
	return false
}

// TransitionsFrom returns the transitions leaving the given state.
func (g Graph) TransitionsFrom(id string) []Transition {
	var out []Transition
	for _, t := range g.Transitions {
		if t.Start.State == id {
			out = append(out, t)
		}
	}
	return out
}

// IsStart reports whether id is the start state.
func (g Graph) IsStart(id string) bool {
	return g.Starting != nil && *g.Starting == id
}

// StateIDs returns the assigned state ids in order.
func (g Graph) StateIDs() []string {
	ids := make([]string, 0, len(g.States))
	for _, s := range g.States {
		if v, ok := s.ID.Value(); ok {
			ids = append(ids, v)
		}
	}
	return ids
}

// TransitionIDs returns the assigned transition ids in order.
func (g Graph) TransitionIDs() []string {
	ids := make([]string, 0, len(g.Transitions))
	for _, t := range g.Transitions {
		if v, ok := t.ID.Value(); ok {
			ids = append(ids, v)
		}
	}
	return ids
}

func strPtr(s string) *string {
	return &s
}
