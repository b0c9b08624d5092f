package tui

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ha1tch/fsm-canvas/internal/config"
	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
	"github.com/ha1tch/fsm-canvas/pkg/graphfile"
	"github.com/ha1tch/fsm-canvas/pkg/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 100x30 screen leaves a 72x28 canvas, which shows 288x224 local units:
// cell (x, y) is local (4x, 8y).
const (
	screenW = 100
	screenH = 30
)

// q0 sits at cell (10, 5) and q1 at cell (40, 5).
const linkedJSON = `{
  "starting": "q0",
  "states": [
    {"id": "q0", "ending": false, "location": {"x": 40, "y": 40}},
    {"id": "q1", "ending": true, "location": {"x": 160, "y": 40}}
  ],
  "transitions": [
    {"id": "t0", "start": {"state": "q0", "offset": {"x": 0, "y": 0}}, "end": {"state": "q1", "offset": {"x": 0, "y": 0}}, "symbol": "a"},
    {"id": "t1", "start": {"state": "q0", "offset": {"x": 0, "y": 0}}, "end": {"state": "q0", "offset": {"x": 0, "y": 0}}, "symbol": "b"}
  ]
}`

func newTestEditor(t *testing.T, opts Options) (*Editor, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(screenW, screenH)
	t.Cleanup(s.Fini)
	return New(s, opts), s
}

func linkedDoc(t *testing.T) *graphfile.Document {
	t.Helper()
	d, err := graphfile.ParseJSON([]byte(linkedJSON))
	require.NoError(t, err)
	return &d
}

func press(ed *Editor, x, y int) {
	ed.handleEvent(tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone))
}

func release(ed *Editor, x, y int) {
	ed.handleEvent(tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
}

func click(ed *Editor, x, y int) {
	press(ed, x, y)
	release(ed, x, y)
}

func key(ed *Editor, r rune) bool {
	return ed.handleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
}

func special(ed *Editor, k tcell.Key) bool {
	return ed.handleEvent(tcell.NewEventKey(k, 0, tcell.ModNone))
}

func typeText(ed *Editor, s string) {
	for _, r := range s {
		key(ed, r)
	}
}

func TestClickAddsState(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})

	click(ed, 10, 5)

	g := ed.Store().Snapshot()
	require.Len(t, g.States, 1)
	assert.Equal(t, graph.Assigned("q0"), g.States[0].ID)
	assert.Equal(t, geom.Point{X: 40, Y: 40}, g.States[0].Location)
	assert.Equal(t, "q0", ed.selected)

	center, radius, ok := g.StateCircle("q0")
	require.True(t, ok)
	assert.Equal(t, geom.Point{X: 10, Y: 5}, center)
	assert.Equal(t, nodeRadius, radius)

	// Adding and mounting the node is one undo step.
	require.True(t, ed.Store().Undo())
	assert.Empty(t, ed.Store().Snapshot().States)
	assert.False(t, ed.Store().CanUndo())
}

func TestDragMovesState(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)

	press(ed, 11, 5)
	assert.Equal(t, dragMove, ed.drag)
	press(ed, 16, 7)
	press(ed, 21, 9)
	release(ed, 21, 9)
	assert.Equal(t, dragNone, ed.drag)

	s, ok := ed.Store().Snapshot().State("q0")
	require.True(t, ok)
	assert.Equal(t, geom.Point{X: 80, Y: 72}, s.Location)

	// The whole drag undoes in one step.
	require.True(t, ed.Store().Undo())
	s, _ = ed.Store().Snapshot().State("q0")
	assert.Equal(t, geom.Point{X: 40, Y: 40}, s.Location)
}

func TestRimDragAddsTransition(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)
	click(ed, 40, 5)

	press(ed, 14, 5)
	assert.Equal(t, dragEdge, ed.drag)
	tip := ed.Store().Snapshot().TransitionInProgress
	require.True(t, tip.Active)
	assert.Equal(t, "q0", tip.Start.State)

	press(ed, 30, 5)
	assert.Equal(t, geom.Point{X: 30, Y: 5}, ed.Store().Snapshot().TransitionInProgress.End)
	assert.Equal(t, "LINK", ed.modeString(ed.Store().Snapshot()))

	release(ed, 40, 5)
	g := ed.Store().Snapshot()
	assert.False(t, g.TransitionInProgress.Active)
	require.Len(t, g.Transitions, 1)
	assert.Equal(t, "q0", g.Transitions[0].Start.State)
	assert.Equal(t, "q1", g.Transitions[0].End.State)
	assert.Equal(t, "", g.Transitions[0].Symbol)
	assert.Equal(t, "t0", ed.selected)

	key(ed, 'l')
	require.Equal(t, ModeInput, ed.mode)
	typeText(ed, "ab")
	special(ed, tcell.KeyEnter)
	assert.Equal(t, ModeCanvas, ed.mode)
	tr, _ := ed.Store().Snapshot().Transition("t0")
	assert.Equal(t, "ab", tr.Symbol)

	// A second edge between the same pair is refused.
	press(ed, 14, 5)
	release(ed, 40, 5)
	assert.Len(t, ed.Store().Snapshot().Transitions, 1)
	assert.Equal(t, MsgWarning, ed.messageType)
	assert.Equal(t, "A transition from q0 to q1 already exists", ed.message)
}

func TestRimDragFromDeletedState(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)
	click(ed, 40, 5)

	press(ed, 14, 5)
	require.True(t, ed.Store().Snapshot().TransitionInProgress.Active)
	ed.Store().DeleteElement("q0")
	release(ed, 40, 5)

	g := ed.Store().Snapshot()
	assert.Empty(t, g.Transitions)
	assert.False(t, g.TransitionInProgress.Active)
	assert.Equal(t, MsgWarning, ed.messageType)
	assert.Equal(t, "Transition dropped, q0 or q1 no longer exists", ed.message)
}

func TestClickOnStateKeepsRedo(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)
	click(ed, 40, 5)

	click(ed, 40, 5)
	key(ed, 'e')
	require.True(t, ed.Store().Snapshot().States[1].Ending)
	key(ed, 'u')
	require.False(t, ed.Store().Snapshot().States[1].Ending)
	require.True(t, ed.Store().CanRedo())

	click(ed, 11, 5)
	assert.Equal(t, "q0", ed.selected)
	assert.True(t, ed.Store().CanRedo())
}

func TestRimClickSelectsWithoutLoop(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)

	click(ed, 14, 5)
	g := ed.Store().Snapshot()
	assert.Empty(t, g.Transitions)
	assert.False(t, g.TransitionInProgress.Active)

	// Dragging off the rim and back onto the node draws a loop.
	press(ed, 14, 5)
	press(ed, 20, 5)
	release(ed, 9, 5)
	g = ed.Store().Snapshot()
	require.Len(t, g.Transitions, 1)
	assert.Equal(t, "q0", g.Transitions[0].End.State)
}

func TestReleaseOnEmptyCanvasCancels(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)

	press(ed, 14, 5)
	release(ed, 50, 20)
	g := ed.Store().Snapshot()
	assert.False(t, g.TransitionInProgress.Active)
	assert.Nil(t, g.TransitionInProgress.Start)
	assert.Empty(t, g.Transitions)
}

func TestEscapeCancelsTransition(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)
	press(ed, 14, 5)
	press(ed, 30, 5)

	special(ed, tcell.KeyEscape)
	assert.False(t, ed.Store().Snapshot().TransitionInProgress.Active)
	release(ed, 40, 5)
	assert.Empty(t, ed.Store().Snapshot().Transitions)
}

func TestStateKeys(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)
	click(ed, 40, 5)
	special(ed, tcell.KeyTab)
	assert.Equal(t, "q0", ed.selected)

	key(ed, 'e')
	s, _ := ed.Store().Snapshot().State("q0")
	assert.True(t, s.Ending)
	key(ed, 'e')
	s, _ = ed.Store().Snapshot().State("q0")
	assert.False(t, s.Ending)

	key(ed, 's')
	assert.Equal(t, "q0", ed.Store().Snapshot().StartID())

	key(ed, 'd')
	g := ed.Store().Snapshot()
	assert.Equal(t, []string{"q1"}, g.StateIDs())
	assert.Equal(t, "", ed.selected)

	key(ed, 'u')
	assert.Equal(t, []string{"q0", "q1"}, ed.Store().Snapshot().StateIDs())
	key(ed, 'r')
	assert.Equal(t, []string{"q1"}, ed.Store().Snapshot().StateIDs())

	key(ed, 'c')
	assert.Empty(t, ed.Store().Snapshot().States)
	key(ed, 'u')
	assert.Equal(t, []string{"q1"}, ed.Store().Snapshot().StateIDs())
}

func TestKeysNeedSelection(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	key(ed, 'e')
	assert.Equal(t, MsgWarning, ed.messageType)
	key(ed, 'l')
	assert.Equal(t, ModeCanvas, ed.mode)
	assert.Equal(t, "No transition to label", ed.message)
	key(ed, 'u')
	assert.Equal(t, "Nothing to undo", ed.message)
}

func TestLabelEditsNewestOutgoing(t *testing.T) {
	ed, _ := newTestEditor(t, Options{Document: linkedDoc(t)})
	special(ed, tcell.KeyTab)
	require.Equal(t, "q0", ed.selected)

	key(ed, 'l')
	require.Equal(t, ModeInput, ed.mode)
	assert.Equal(t, "b", ed.inputBuffer)
	special(ed, tcell.KeyBackspace2)
	typeText(ed, "c")
	special(ed, tcell.KeyEnter)

	g := ed.Store().Snapshot()
	t0, _ := g.Transition("t0")
	t1, _ := g.Transition("t1")
	assert.Equal(t, "a", t0.Symbol)
	assert.Equal(t, "c", t1.Symbol)
}

func TestInputEscapeCancels(t *testing.T) {
	ed, _ := newTestEditor(t, Options{Document: linkedDoc(t)})
	special(ed, tcell.KeyTab)
	key(ed, 'l')
	typeText(ed, "zz")
	special(ed, tcell.KeyEscape)
	assert.Equal(t, ModeCanvas, ed.mode)
	t1, _ := ed.Store().Snapshot().Transition("t1")
	assert.Equal(t, "b", t1.Symbol)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.fsmc")
	ed, _ := newTestEditor(t, Options{Path: path})
	click(ed, 10, 5)
	assert.True(t, ed.dirty())

	key(ed, 'w')
	assert.Equal(t, MsgSuccess, ed.messageType)
	assert.False(t, ed.dirty())

	doc, meta, err := graphfile.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "machine", meta.Name)
	assert.Equal(t, []string{"q0"}, doc.StateIDs())
}

func TestSaveAsPrompts(t *testing.T) {
	dir := t.TempDir()
	ed, _ := newTestEditor(t, Options{})
	click(ed, 10, 5)

	key(ed, 'w')
	require.Equal(t, ModeInput, ed.mode)
	typeText(ed, filepath.Join(dir, "drawn"))
	special(ed, tcell.KeyEnter)

	want := filepath.Join(dir, "drawn"+graphfile.BundleExt)
	assert.Equal(t, want, ed.path)
	_, err := os.Stat(want)
	assert.NoError(t, err)
}

func TestSaveRemembersDirectory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	ed, _ := newTestEditor(t, Options{Config: cfg, ConfigPath: cfgPath})
	click(ed, 10, 5)

	key(ed, 'w')
	typeText(ed, filepath.Join(dir, "first"))
	special(ed, tcell.KeyEnter)
	assert.Equal(t, dir, cfg.Editor.LastDir)

	saved, err := config.LoadFrom(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, dir, saved.Editor.LastDir)

	// A relative save-as name lands in the remembered directory.
	ed, _ = newTestEditor(t, Options{Config: cfg})
	click(ed, 10, 5)
	key(ed, 'w')
	typeText(ed, "second")
	special(ed, tcell.KeyEnter)
	assert.Equal(t, filepath.Join(dir, "second"+graphfile.BundleExt), ed.path)
}

func TestQuit(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	assert.True(t, key(ed, 'q'), "clean editor quits at once")

	ed, _ = newTestEditor(t, Options{})
	click(ed, 10, 5)
	assert.False(t, key(ed, 'q'))
	assert.Equal(t, MsgWarning, ed.messageType)
	assert.True(t, key(ed, 'q'))

	ed, _ = newTestEditor(t, Options{})
	click(ed, 10, 5)
	key(ed, 'q')
	key(ed, 'e')
	assert.False(t, key(ed, 'q'), "another key disarms quit")

	assert.True(t, special(ed, tcell.KeyCtrlC))
}

type fakeSim struct {
	tape string
	resp simulate.SimulationResponse
	err  error
}

func (f *fakeSim) SimulateGraph(_ context.Context, _ graph.Graph, tape string) (simulate.SimulationResponse, error) {
	f.tape = tape
	return f.resp, f.err
}

// waitSimResult feeds screen events to the editor until a simulation
// result arrives.
func waitSimResult(t *testing.T, ed *Editor, s tcell.Screen) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := s.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()
	for {
		select {
		case ev := <-events:
			ed.handleEvent(ev)
			if intr, ok := ev.(*tcell.EventInterrupt); ok {
				if _, ok := intr.Data().(simResult); ok {
					return
				}
			}
		case <-deadline:
			t.Fatal("no simulation result")
		}
	}
}

func runTapeKeys(ed *Editor, tape string) {
	key(ed, 'x')
	typeText(ed, tape)
	special(ed, tcell.KeyEnter)
}

func TestRunTapeLocally(t *testing.T) {
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t)})
	runTapeKeys(ed, "a")
	waitSimResult(t, ed, s)
	assert.Equal(t, MsgSuccess, ed.messageType)
	assert.Equal(t, `Accepted "a": q0→q1`, ed.message)
}

func TestRunTapeRejected(t *testing.T) {
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t)})
	runTapeKeys(ed, "ac")
	waitSimResult(t, ed, s)
	assert.Equal(t, MsgError, ed.messageType)
	assert.Equal(t, `Rejected "ac": q0→q1 (stuck on "c")`, ed.message)
}

func TestRunTapeRemote(t *testing.T) {
	sim := &fakeSim{err: &simulate.ServiceError{Status: 400, Message: "machine is not deterministic"}}
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t), Simulator: sim})
	runTapeKeys(ed, "ab")
	waitSimResult(t, ed, s)
	assert.Equal(t, "ab", sim.tape)
	assert.Equal(t, MsgError, ed.messageType)
	assert.Equal(t, "machine is not deterministic", ed.message)
}

func TestRunTapeAgainstService(t *testing.T) {
	srv := httptest.NewServer(simulate.NewMux(simulate.NewHandler(nil)))
	defer srv.Close()

	client := simulate.NewClient(srv.URL, 5*time.Second, nil)
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t), Simulator: client})
	runTapeKeys(ed, "ba")
	waitSimResult(t, ed, s)
	assert.Equal(t, `Accepted "ba": q0→q0→q1`, ed.message)
}

func TestRunTapeNeedsStart(t *testing.T) {
	sim := &fakeSim{err: errors.New("unreachable")}
	ed, _ := newTestEditor(t, Options{Simulator: sim})
	runTapeKeys(ed, "a")
	assert.Equal(t, "Set a start state first", ed.message)
	assert.Equal(t, "", sim.tape)
}

func TestDraw(t *testing.T) {
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t)})
	ed.draw()

	cell := func(x, y int) rune {
		r, _, _, _ := s.GetContent(x, y)
		return r
	}
	// q0 box spans columns 6 to 14 around (10, 5).
	assert.Equal(t, '╭', cell(6, 4))
	assert.Equal(t, 'q', cell(9, 5))
	assert.Equal(t, '0', cell(10, 5))
	assert.Equal(t, '▶', cell(5, 5), "start marker")
	// q1 is accepting.
	assert.Equal(t, '╔', cell(36, 4))
	assert.Equal(t, '↻', cell(9, 3), "self loop above q0")
	assert.Equal(t, 'b', cell(11, 3))
	// t0 runs along row 5 with its label halfway and its head left of q1.
	assert.Equal(t, '·', cell(20, 5))
	assert.Equal(t, 'a', cell(25, 5))
	assert.Equal(t, '▶', cell(35, 5))
	assert.Equal(t, 'S', cell(74, 0), "sidebar header")
	assert.Equal(t, '[', cell(1, screenH-1), "status bar")
}

func TestDrawEmptyHint(t *testing.T) {
	ed, s := newTestEditor(t, Options{})
	ed.draw()
	hint := "Click anywhere to add a state"
	r, _, _, _ := s.GetContent((72-len(hint))/2, 14)
	assert.Equal(t, 'C', r)
}

func TestResize(t *testing.T) {
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t)})
	s.SetSize(120, 40)
	ed.handleEvent(tcell.NewEventResize(120, 40))

	g := ed.Store().Snapshot()
	assert.Equal(t, geom.Size{Width: 92 * cellWidth, Height: 38 * cellHeight}, g.Size)
	c, _, ok := g.StateCircle("q0")
	require.True(t, ok)
	assert.Equal(t, geom.Point{X: 10, Y: 5}, c, "nodes keep their cell")
}

func TestViewportUnmountedWithoutCanvas(t *testing.T) {
	ed, s := newTestEditor(t, Options{Document: linkedDoc(t)})
	s.SetSize(40, 2)
	_, ok := ed.Store().Snapshot().ScreenCTM()
	assert.False(t, ok)
	_, _, ok = ed.Store().Snapshot().StateCircle("q0")
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefg", 5))
	assert.Equal(t, "ab", truncate("abcdefg", 2))
	assert.Equal(t, "", truncate("abc", -1))
}

func TestArrowHead(t *testing.T) {
	o := geom.Point{}
	assert.Equal(t, '▶', arrowHead(o, geom.Point{X: 5, Y: 1}))
	assert.Equal(t, '◀', arrowHead(o, geom.Point{X: -5, Y: 1}))
	assert.Equal(t, '▼', arrowHead(o, geom.Point{X: 1, Y: 3}))
	assert.Equal(t, '▲', arrowHead(o, geom.Point{X: 1, Y: -3}))
}
