package graph

import (
	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// DefaultEdgeScaling pulls edge anchors slightly inside the node circle.
const DefaultEdgeScaling = 0.9

// EdgeQuery asks for the point where a line leaving a state's centre meets
// its circle. Point is a client-space target; Offset is relative to the
// centre. With neither, the direction is (1, 1).
type EdgeQuery struct {
	StateID string
	Point   *geom.Point
	Offset  *geom.Point
	Scaling *float64
}

// ScreenCTM returns the viewport transform, if the root is mounted.
func (g Graph) ScreenCTM() (geom.Matrix, bool) {
	if g.Root == nil {
		return geom.Matrix{}, false
	}
	return g.Root.ScreenCTM()
}

// ClientToLocal converts a client point to local coordinates. Without a
// mounted root it returns the origin.
func (g Graph) ClientToLocal(p geom.Point) geom.Point {
	m, ok := g.ScreenCTM()
	if !ok {
		return geom.Origin()
	}
	return geom.ClientToLocal(m, p)
}

// LocalToClient converts a local point to client coordinates. Without a
// mounted root it returns the origin.
func (g Graph) LocalToClient(p geom.Point) geom.Point {
	m, ok := g.ScreenCTM()
	if !ok {
		return geom.Origin()
	}
	return geom.LocalToClient(m, p)
}

// EventToLocal converts pointer client coordinates to local coordinates.
func (g Graph) EventToLocal(clientX, clientY float64) geom.Point {
	return g.ClientToLocal(geom.Point{X: clientX, Y: clientY})
}

// PointForState returns the location of a state.
func (g Graph) PointForState(id string) (geom.Point, bool) {
	s, ok := g.State(id)
	if !ok {
		return geom.Point{}, false
	}
	return s.Location, true
}

// StateCircle returns the on-screen circle of a state from its boundary.
func (g Graph) StateCircle(id string) (center geom.Point, radius float64, ok bool) {
	s, found := g.State(id)
	if !found || s.Boundary == nil {
		return geom.Point{}, 0, false
	}
	rect, mounted := s.Boundary.BoundingRect()
	if !mounted {
		return geom.Point{}, 0, false
	}
	center, radius = rect.Circle()
	return center, radius, true
}

// ThrowPointToStateEdge returns, in local coordinates, the anchor on the
// boundary of a state's circle in the requested direction. The anchor is
// pulled toward the centre by the scaling factor: its distance from the
// centre is scaling*radius, not the distance along the line from the
// target. With neither Point nor Offset set the direction is (1, 1).
// Unresolvable states give the origin.
func (g Graph) ThrowPointToStateEdge(q EdgeQuery) geom.Point {
	center, radius, ok := g.StateCircle(q.StateID)
	if !ok {
		return geom.Origin()
	}

	var target geom.Point
	switch {
	case q.Point != nil:
		target = *q.Point
	case q.Offset != nil:
		off := *q.Offset
		if off.X == 0 {
			off.X = 1
		}
		if off.Y == 0 {
			off.Y = 1
		}
		target = center.Add(off)
	default:
		target = center.Add(geom.Point{X: 1, Y: 1})
	}

	scaling := DefaultEdgeScaling
	if q.Scaling != nil {
		scaling = *q.Scaling
	}

	edge := geom.ComputeThirdPoint(radius, geom.ComputeLine(center, target), center, target)
	anchor := center.Add(edge.Sub(center).Scale(scaling))
	return g.ClientToLocal(anchor)
}

// TransitionAnchors returns the local-space endpoints of a transition's
// line: each end anchored on its state's edge, aimed at the other state.
// A zero scaling means DefaultEdgeScaling.
func (g Graph) TransitionAnchors(t Transition, scaling float64) (from, to geom.Point, ok bool) {
	fc, _, okFrom := g.StateCircle(t.Start.State)
	tc, _, okTo := g.StateCircle(t.End.State)
	if !okFrom || !okTo {
		return geom.Origin(), geom.Origin(), false
	}
	toward := tc.Add(t.Start.Offset)
	back := fc.Add(t.End.Offset)
	var sc *float64
	if scaling != 0 {
		sc = &scaling
	}
	from = g.ThrowPointToStateEdge(EdgeQuery{StateID: t.Start.State, Point: &toward, Scaling: sc})
	to = g.ThrowPointToStateEdge(EdgeQuery{StateID: t.End.State, Point: &back, Scaling: sc})
	return from, to, true
}

// StateAt returns the id of the state whose on-screen circle contains the
// client point, preferring the last drawn.
func (g Graph) StateAt(p geom.Point) (string, bool) {
	for i := len(g.States) - 1; i >= 0; i-- {
		id, ok := g.States[i].ID.Value()
		if !ok {
			continue
		}
		c, r, ok := g.StateCircle(id)
		if ok && c.Dist(p) <= r {
			return id, true
		}
	}
	return "", false
}
