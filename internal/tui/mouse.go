package tui

import (
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	p := geom.Point{X: float64(x), Y: float64(y)}
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.Button1 != 0 && !ed.leftDown:
		ed.leftDown = true
		ed.mouseDown(p, x, y)
	case buttons&tcell.Button1 != 0:
		ed.mouseDrag(p)
	case ed.leftDown:
		ed.leftDown = false
		ed.mouseUp(p)
	case buttons&tcell.Button2 != 0, buttons&tcell.Button3 != 0:
		if ed.store.Snapshot().TransitionInProgress.Active {
			ed.store.CancelTransition()
		}
	}
}

func (ed *Editor) mouseDown(p geom.Point, x, y int) {
	if ed.mode != ModeCanvas {
		return
	}
	cw, ch := ed.canvasSize()
	if x < 0 || y < 0 || x >= cw || y >= ch {
		return
	}
	ed.clearFlash()
	ed.downAt = p

	g := ed.store.Snapshot()
	id, ok := g.StateAt(p)
	if !ok {
		ed.addStateAt(p)
		return
	}
	ed.selected = id

	center, radius, _ := g.StateCircle(id)
	if geom.PointIsAtEdgeOfCircle(center, p, radius, ed.cfg.Editor.GrabZone) {
		ed.store.BeginTransition(id, p)
		ed.drag = dragEdge
		return
	}
	ed.store.BeginGesture()
	ed.drag = dragMove
	ed.dragState = id
	ed.dragOffset = center.Sub(p)
}

func (ed *Editor) mouseDrag(p geom.Point) {
	switch ed.drag {
	case dragMove:
		g := ed.store.Snapshot()
		s, ok := g.State(ed.dragState)
		if !ok {
			return
		}
		local := g.ClientToLocal(p.Add(ed.dragOffset))
		ed.store.ModifyState(graph.StatePatch{ID: s.ID, Location: &local})
	case dragEdge:
		ed.store.SetTransitionInProgress(graph.TIPPatch{End: &p})
	}
}

func (ed *Editor) mouseUp(p geom.Point) {
	switch ed.drag {
	case dragMove:
		ed.store.EndGesture()
	case dragEdge:
		ed.finishTransition(p)
	}
	ed.drag = dragNone
	ed.dragState = ""
}

// finishTransition completes the transition in progress on the state under
// p, or cancels it.
func (ed *Editor) finishTransition(p geom.Point) {
	g := ed.store.Snapshot()
	if !g.TransitionInProgress.Active {
		return
	}
	target, ok := g.StateAt(p)
	if !ok {
		ed.store.CancelTransition()
		return
	}
	from := g.TransitionInProgress.Start.State
	if target == from && p == ed.downAt {
		// A click on the rim selects without adding a loop.
		ed.store.CancelTransition()
		return
	}
	switch err := ed.store.CompleteTransition(target); {
	case errors.Is(err, graph.ErrTransitionExists):
		ed.showMessage("A transition from "+from+" to "+target+" already exists", MsgWarning)
		return
	case errors.Is(err, graph.ErrUnknownState):
		ed.showMessage("Transition dropped, "+from+" or "+target+" no longer exists", MsgWarning)
		return
	case err != nil:
		return
	}
	next := ed.store.Snapshot()
	t := next.Transitions[len(next.Transitions)-1]
	ed.selected = t.ID.String()
	ed.showMessage("Added "+ed.selected+", press l to label it", MsgInfo)
}
