package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

func boolPtr(b bool) *bool { return &b }
func pointPtr(x, y float64) *geom.Point { return &geom.Point{X: x, Y: y} }

func newState(id string, ending bool, x, y float64) StatePatch {
	return StatePatch{ID: Assigned(id), Ending: boolPtr(ending), Location: pointPtr(x, y)}
}

func newTransition(id, from, to, symbol string) TransitionPatch {
	return TransitionPatch{
		ID:     Assigned(id),
		Start:  &Endpoint{State: from},
		End:    &Endpoint{State: to},
		Symbol: strPtr(symbol),
	}
}

// sample builds q0 -a-> q1 -b-> q2, q2 -a-> q0 with q0 as the start state.
func sample(t *testing.T) Graph {
	t.Helper()
	g := Reduce(Blank(), Add{
		States: []StatePatch{
			newState("q0", false, 10, 10),
			newState("q1", false, 50, 10),
			newState("q2", true, 90, 10),
		},
		Transitions: []TransitionPatch{
			newTransition("t0", "q0", "q1", "a"),
			newTransition("t1", "q1", "q2", "b"),
			newTransition("t2", "q2", "q0", "a"),
		},
	})
	g = Reduce(g, SetStart{ID: strPtr("q0")})
	require.Len(t, g.States, 3)
	require.Len(t, g.Transitions, 3)
	require.Equal(t, "q0", g.StartID())
	return g
}

func TestBlank(t *testing.T) {
	g := Blank()
	assert.Equal(t, geom.Size{Width: 200, Height: 200}, g.Size)
	assert.Nil(t, g.Starting)
	assert.Empty(t, g.States)
	assert.Empty(t, g.Transitions)
	assert.False(t, g.TransitionInProgress.Active)
	assert.Nil(t, g.TransitionInProgress.Start)
	assert.Nil(t, g.Root)
}

func TestEndToEndAddMergeRemove(t *testing.T) {
	g := Reduce(Blank(), AddState(StatePatch{
		ID:       Unassigned,
		Ending:   boolPtr(false),
		Location: pointPtr(0, 0),
	}))
	require.Len(t, g.States, 1)
	assert.Equal(t, Assigned("q0"), g.States[0].ID)

	g = Reduce(g, AddState(StatePatch{ID: Assigned("q0"), Ending: boolPtr(true)}))
	require.Len(t, g.States, 1)
	assert.True(t, g.States[0].Ending)
	assert.Equal(t, geom.Point{}, g.States[0].Location)

	g = Reduce(g, Remove{IDs: []string{"q0"}})
	assert.Empty(t, g.States)
}

func TestAddAllocatesIDs(t *testing.T) {
	g := Reduce(Blank(), AddState(
		newState("q0", false, 0, 0),
		newState("q3", false, 0, 0),
		newState("q7", false, 0, 0),
	))

	one := Reduce(g, AddState(StatePatch{ID: Unassigned}))
	assert.Equal(t, []string{"q0", "q3", "q7", "q8"}, one.StateIDs())

	two := Reduce(g, AddState(StatePatch{ID: Unassigned}, StatePatch{ID: Unassigned}))
	assert.Equal(t, []string{"q0", "q3", "q7", "q8", "q9"}, two.StateIDs())

	// The input snapshot is untouched.
	assert.Equal(t, []string{"q0", "q3", "q7"}, g.StateIDs())
}

func TestAddAllocatesAroundLaterExplicitIDs(t *testing.T) {
	g := Reduce(Blank(), AddState(
		StatePatch{ID: Unassigned, Location: pointPtr(1, 0)},
		StatePatch{ID: Assigned("q0"), Location: pointPtr(2, 0)},
	))
	require.Len(t, g.States, 2)
	assert.Equal(t, []string{"q1", "q0"}, g.StateIDs())
	assert.Equal(t, geom.Point{X: 1}, g.States[0].Location)
	assert.Equal(t, geom.Point{X: 2}, g.States[1].Location)

	g = Reduce(g, AddTransition(
		TransitionPatch{ID: Unassigned, Start: &Endpoint{State: "q1"}, End: &Endpoint{State: "q0"}},
		TransitionPatch{ID: Assigned("t0"), Start: &Endpoint{State: "q0"}, End: &Endpoint{State: "q1"}},
	))
	require.Len(t, g.Transitions, 2)
	assert.Equal(t, []string{"t1", "t0"}, g.TransitionIDs())
	assert.Equal(t, "q1", g.Transitions[0].Start.State)
	assert.Equal(t, "q0", g.Transitions[1].Start.State)
}

func TestAddReportsOnlyRealChanges(t *testing.T) {
	g := sample(t)

	_, ch := reduce(g, AddState(StatePatch{ID: Assigned("q1"), Location: pointPtr(50, 10)}))
	assert.Zero(t, ch)
	_, ch = reduce(g, AddTransition(newTransition("t0", "q0", "q1", "a")))
	assert.Zero(t, ch)
	_, ch = reduce(g, AddState(StatePatch{ID: Assigned("q1"), Location: pointPtr(51, 10)}))
	assert.Equal(t, changedModel, ch)

	ref := &box{}
	withRef, ch := reduce(g, AddState(StatePatch{ID: Assigned("q1"), Boundary: ref}))
	assert.Equal(t, changedModel, ch)
	_, ch = reduce(withRef, AddState(StatePatch{ID: Assigned("q1"), Boundary: ref}))
	assert.Zero(t, ch)
	_, ch = reduce(withRef, AddState(StatePatch{ID: Assigned("q1"), Boundary: &box{}}))
	assert.Equal(t, changedModel, ch)

	_, ch = reduce(Blank(), Clear{})
	assert.Zero(t, ch)
}

func TestAddAllocatesTransitionIDs(t *testing.T) {
	g := sample(t)
	g = Reduce(g, AddTransition(
		TransitionPatch{ID: Unassigned, Start: &Endpoint{State: "q0"}, End: &Endpoint{State: "q2"}},
		TransitionPatch{ID: Unassigned, Start: &Endpoint{State: "q1"}, End: &Endpoint{State: "q0"}},
	))
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4"}, g.TransitionIDs())
	assert.Equal(t, "", g.Transitions[3].Symbol)
}

func TestAddOrdersExistingThenNew(t *testing.T) {
	g := Reduce(Blank(), AddState(newState("q1", false, 1, 1), newState("q0", false, 0, 0)))
	g = Reduce(g, AddState(
		StatePatch{ID: Unassigned},
		newState("q0", true, 5, 5),
		newState("q9", false, 9, 9),
	))
	assert.Equal(t, []string{"q1", "q0", "q2", "q9"}, g.StateIDs())
	assert.True(t, g.States[1].Ending)
	assert.Equal(t, geom.Point{X: 5, Y: 5}, g.States[1].Location)
}

func TestAddIdempotent(t *testing.T) {
	g := sample(t)
	again := Reduce(g, Add{
		States:      []StatePatch{PatchFromState(g.States[1])},
		Transitions: []TransitionPatch{PatchFromTransition(g.Transitions[2])},
	})
	assert.Equal(t, g, again)
}

func TestAddMergePreservesAbsentFields(t *testing.T) {
	g := sample(t)
	g = Reduce(g, AddTransition(TransitionPatch{ID: Assigned("t1"), Symbol: strPtr("xy")}))
	tr, ok := g.Transition("t1")
	require.True(t, ok)
	assert.Equal(t, "xy", tr.Symbol)
	assert.Equal(t, "q1", tr.Start.State)
	assert.Equal(t, "q2", tr.End.State)
}

func TestAddEmptyIsNoop(t *testing.T) {
	g := sample(t)
	out, ch := reduce(g, Add{})
	assert.Equal(t, change(0), ch)
	assert.Equal(t, g, out)
}

func TestAddTransitionInProgress(t *testing.T) {
	g := Reduce(Blank(), Add{TransitionInProgress: &TIPPatch{
		Active: boolPtr(true),
		Start:  &Endpoint{State: "q0"},
		End:    pointPtr(3, 4),
	}})
	tip := g.TransitionInProgress
	assert.True(t, tip.Active)
	require.NotNil(t, tip.Start)
	assert.Equal(t, "q0", tip.Start.State)
	assert.Equal(t, geom.Point{X: 3, Y: 4}, tip.End)

	// A partial patch only touches the fields it carries.
	g = Reduce(g, Add{TransitionInProgress: &TIPPatch{End: pointPtr(7, 8)}})
	assert.True(t, g.TransitionInProgress.Active)
	assert.Equal(t, "q0", g.TransitionInProgress.Start.State)
	assert.Equal(t, geom.Point{X: 7, Y: 8}, g.TransitionInProgress.End)

	g = Reduce(g, Add{TransitionInProgress: &TIPPatch{Active: boolPtr(false), ClearStart: true}})
	assert.False(t, g.TransitionInProgress.Active)
	assert.Nil(t, g.TransitionInProgress.Start)
}

func TestRemoveCascades(t *testing.T) {
	g := sample(t)
	lists := [][]string{
		{"q0"},
		{"q1"},
		{"q1", "q2"},
		{"t0"},
		{"t0", "q2"},
		{"nope"},
	}
	for _, ids := range lists {
		out := Reduce(g, Remove{IDs: ids})
		for _, s := range out.States {
			v, _ := s.ID.Value()
			assert.NotContains(t, ids, v)
		}
		for _, tr := range out.Transitions {
			v, _ := tr.ID.Value()
			assert.NotContains(t, ids, v)
			assert.NotContains(t, ids, tr.Start.State)
			assert.NotContains(t, ids, tr.End.State)
		}
	}
}

func TestRemoveTransitionKeepsStates(t *testing.T) {
	g := sample(t)
	out := Reduce(g, Remove{IDs: []string{"t1"}})
	assert.Len(t, out.States, 3)
	assert.Equal(t, []string{"t0", "t2"}, out.TransitionIDs())
	assert.Equal(t, "q0", out.StartID())
}

func TestRemoveClearsStart(t *testing.T) {
	g := sample(t)
	out := Reduce(g, Remove{IDs: []string{"q0"}})
	assert.Nil(t, out.Starting)
	assert.Equal(t, []string{"t1"}, out.TransitionIDs())

	kept := Reduce(g, Remove{IDs: []string{"q1"}})
	assert.Equal(t, "q0", kept.StartID())
}

func TestRemoveEmptyIsNoop(t *testing.T) {
	g := sample(t)
	_, ch := reduce(g, Remove{})
	assert.Equal(t, change(0), ch)
	_, ch = reduce(g, Remove{IDs: []string{"zzz"}})
	assert.Equal(t, change(0), ch)
}

func TestClear(t *testing.T) {
	g := sample(t)
	g = Reduce(g, SetSize{Size: &geom.Size{Width: 640, Height: 480}})
	out := Reduce(g, Clear{})
	assert.Empty(t, out.States)
	assert.Empty(t, out.Transitions)
	assert.Equal(t, g.Starting, out.Starting)
	assert.Equal(t, g.Size, out.Size)
	assert.Equal(t, g.TransitionInProgress, out.TransitionInProgress)
}

func TestSetStart(t *testing.T) {
	g := sample(t)

	g2 := Reduce(g, SetStart{ID: strPtr("q2")})
	assert.Equal(t, "q2", g2.StartID())

	g3 := Reduce(g2, SetStart{ID: nil})
	assert.Nil(t, g3.Starting)

	g4 := Reduce(g2, SetStart{ID: strPtr("missing")})
	assert.Nil(t, g4.Starting)

	_, ch := reduce(g2, SetStart{ID: strPtr("q2")})
	assert.Equal(t, change(0), ch)
}

type viewport struct {
	m geom.Matrix
}

func (v *viewport) ScreenCTM() (geom.Matrix, bool) {
	if v == nil {
		return geom.Matrix{}, false
	}
	return v.m, true
}

type funcViewport func() geom.Matrix

func (f funcViewport) ScreenCTM() (geom.Matrix, bool) { return f(), true }

func TestSetRoot(t *testing.T) {
	root := &viewport{m: geom.Identity()}
	g := Reduce(Blank(), SetRoot{Root: root})
	assert.Same(t, root, g.Root)

	_, ch := reduce(g, SetRoot{Root: root})
	assert.Equal(t, change(0), ch)

	other := &viewport{m: geom.Identity()}
	g = Reduce(g, SetRoot{Root: other})
	assert.Same(t, other, g.Root)

	// Handles of uncomparable types are always treated as new.
	fv := funcViewport(geom.Identity)
	g = Reduce(g, SetRoot{Root: fv})
	_, ch = reduce(g, SetRoot{Root: fv})
	assert.Equal(t, changedView, ch)
}

func TestSetSize(t *testing.T) {
	g := Blank()

	same := DefaultSize
	_, ch := reduce(g, SetSize{Size: &same})
	assert.Equal(t, change(0), ch)

	g = Reduce(g, SetSize{Size: &geom.Size{Width: 300, Height: 100}})
	assert.Equal(t, geom.Size{Width: 300, Height: 100}, g.Size)

	g = Reduce(g, SetSize{Update: func(s geom.Size) geom.Size {
		s.Width *= 2
		return s
	}})
	assert.Equal(t, 600.0, g.Size.Width)

	_, ch = reduce(g, SetSize{Update: func(s geom.Size) geom.Size { return s }})
	assert.Equal(t, change(0), ch)

	_, ch = reduce(g, SetSize{})
	assert.Equal(t, change(0), ch)
}

func TestUnknownAndNilActions(t *testing.T) {
	g := sample(t)
	assert.Equal(t, g, Reduce(g, nil))
	assert.Equal(t, g, Reduce(g, Step{}))
	assert.Equal(t, g, Reduce(g, (*Remove)(nil)))
	assert.Equal(t, g, Reduce(g, (*Add)(nil)))
}

func TestPointerActions(t *testing.T) {
	g := sample(t)
	out := Reduce(g, &Remove{IDs: []string{"q2"}})
	assert.Len(t, out.States, 2)
}
