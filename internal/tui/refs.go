package tui

import (
	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// Local units per terminal cell. Cells are roughly twice as tall as they
// are wide, so this keeps saved layouts in proportion.
const (
	cellWidth  = 4.0
	cellHeight = 8.0
)

// nodeRadius is the radius of a state's hit circle in cells. Nodes are
// drawn as boxes nodeWidth cells wide centred on the state.
const (
	nodeRadius = 4.5
	nodeWidth  = 9
)

// viewport maps the local coordinates of the graph onto the canvas cells.
type viewport struct {
	ed *Editor
}

func (v viewport) ScreenCTM() (geom.Matrix, bool) {
	cw, ch := v.ed.canvasSize()
	if cw <= 0 || ch <= 0 {
		return geom.Matrix{}, false
	}
	size := v.ed.store.Snapshot().Size
	m := geom.ViewportMatrix(size, 0, 0, float64(cw), float64(ch))
	return m, m.Invertible()
}

// nodeRef is the on-screen box of one state.
type nodeRef struct {
	ed *Editor
	id string
}

func (n nodeRef) BoundingRect() (geom.Rect, bool) {
	g := n.ed.store.Snapshot()
	s, ok := g.State(n.id)
	if !ok {
		return geom.Rect{}, false
	}
	if _, mounted := g.ScreenCTM(); !mounted {
		return geom.Rect{}, false
	}
	c := g.LocalToClient(s.Location)
	return geom.Rect{
		Left:   c.X - nodeRadius,
		Top:    c.Y - nodeRadius,
		Width:  2 * nodeRadius,
		Height: 2 * nodeRadius,
	}, true
}

// canvasLocalSize is the local size shown by a canvas of cw by ch cells.
func canvasLocalSize(cw, ch int) geom.Size {
	return geom.Size{Width: float64(cw) * cellWidth, Height: float64(ch) * cellHeight}
}

// withBoundaries returns g with a node ref attached to every state.
func (ed *Editor) withBoundaries(g graph.Graph) graph.Graph {
	states := make([]graph.State, len(g.States))
	for i, s := range g.States {
		if id, ok := s.ID.Value(); ok {
			s.Boundary = nodeRef{ed: ed, id: id}
		}
		states[i] = s
	}
	g.States = states
	return g
}
