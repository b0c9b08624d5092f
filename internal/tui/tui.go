// Package tui is a terminal editor for state-machine graphs. It is a client
// of graph.Store: every edit is dispatched to the store and the screen is
// redrawn from the latest snapshot.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ha1tch/fsm-canvas/internal/config"
	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
	"github.com/ha1tch/fsm-canvas/pkg/graphfile"
	"github.com/ha1tch/fsm-canvas/pkg/simulate"
)

// Simulator runs a tape against a graph. *simulate.Client satisfies it.
type Simulator interface {
	SimulateGraph(ctx context.Context, g graph.Graph, tape string) (simulate.SimulationResponse, error)
}

// Options configures an Editor.
type Options struct {
	Path       string              // file to save to; empty until the first save
	Document   *graphfile.Document // initial graph, may be nil
	Config     *config.Config
	ConfigPath string    // where the last save directory is remembered; empty leaves it alone
	Simulator  Simulator // nil runs tapes locally
	Logger     *slog.Logger
}

// Mode is the input mode of the editor.
type Mode int

const (
	ModeCanvas Mode = iota
	ModeInput
)

// MessageType selects the status bar style of a message.
type MessageType int

const (
	MsgInfo MessageType = iota
	MsgError
	MsgSuccess
	MsgWarning
)

type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragEdge
)

// Editor holds all editor state.
type Editor struct {
	screen tcell.Screen
	store  *graph.Store
	cfg    *config.Config
	sim    Simulator
	logger *slog.Logger

	path    string
	saved   graphfile.Document
	cfgPath string

	mode     Mode
	selected string // state or transition id

	message           string
	messageType       MessageType
	messageFlashStart atomic.Int64

	inputPrompt string
	inputBuffer string
	inputAction func(string)

	// Left-button drag
	leftDown   bool
	downAt     geom.Point
	drag       dragKind
	dragState  string
	dragOffset geom.Point

	quitArmed bool
	changed   atomic.Bool
	unsub     func()
}

type simResult struct {
	tape string
	resp simulate.SimulationResponse
	err  error
}

// New creates an editor drawing on screen. The screen must already be
// initialised.
func New(screen tcell.Screen, opts Options) *Editor {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ed := &Editor{
		screen: screen,
		cfg:    cfg,
		sim:    opts.Simulator,
		logger: logger,
		path:   opts.Path,

		cfgPath: opts.ConfigPath,
	}

	initial := graph.Blank()
	if opts.Document != nil {
		initial = opts.Document.Graph()
	}
	ed.store = graph.NewStore(
		graph.WithLogger(logger),
		graph.WithHistory(cfg.Editor.History),
		graph.WithGraph(ed.withBoundaries(initial)),
	)
	ed.saved = graphfile.FromGraph(ed.store.Snapshot())

	ed.store.SetRoot(viewport{ed: ed})
	ed.resize()
	ed.unsub = ed.store.Subscribe(func(graph.Graph) {
		ed.changed.Store(true)
	})
	return ed
}

// Store returns the editor's graph store.
func (ed *Editor) Store() *graph.Store {
	return ed.store
}

// Run processes events until the user quits.
func (ed *Editor) Run() {
	defer ed.unsub()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			needsRefresh := ed.changed.Swap(false)
			if start := ed.messageFlashStart.Load(); start > 0 {
				elapsed := time.Now().UnixMilli() - start
				if elapsed >= 0 && elapsed < 700 {
					needsRefresh = true
				}
			}
			if needsRefresh {
				ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		if ev == nil {
			return
		}
		if ed.handleEvent(ev) {
			return
		}
	}
}

// handleEvent reports whether the editor should quit.
func (ed *Editor) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		ed.resize()
		ed.screen.Sync()
	case *tcell.EventKey:
		return ed.handleKey(ev)
	case *tcell.EventMouse:
		ed.handleMouse(ev)
	case *tcell.EventInterrupt:
		if res, ok := ev.Data().(simResult); ok {
			ed.showSimResult(res)
		}
	}
	return false
}

// canvasSize returns the canvas area in cells: the screen minus the
// sidebar and the two bottom rows.
func (ed *Editor) canvasSize() (w, h int) {
	sw, sh := ed.screen.Size()
	return sw - ed.sidebarWidth(sw), sh - 2
}

func (ed *Editor) sidebarWidth(screenW int) int {
	if screenW < 70 {
		return 0
	}
	return 28
}

func (ed *Editor) resize() {
	cw, ch := ed.canvasSize()
	if cw <= 0 || ch <= 0 {
		return
	}
	ed.store.SetSize(canvasLocalSize(cw, ch))
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	mod := ev.Modifiers()
	isCtrlOrCmd := func(key tcell.Key, r rune) bool {
		if ev.Key() == key {
			return true
		}
		if mod&(tcell.ModMeta|tcell.ModAlt) != 0 && ev.Rune() == r {
			return true
		}
		return false
	}

	ed.clearFlash()

	if isCtrlOrCmd(tcell.KeyCtrlC, 'c') {
		return true
	}
	if isCtrlOrCmd(tcell.KeyCtrlS, 's') {
		ed.save()
		return false
	}
	if isCtrlOrCmd(tcell.KeyCtrlZ, 'z') {
		ed.undo()
		return false
	}
	if isCtrlOrCmd(tcell.KeyCtrlY, 'y') {
		ed.redo()
		return false
	}

	switch ed.mode {
	case ModeInput:
		ed.handleInputKey(ev)
		return false
	default:
		return ed.handleCanvasKey(ev)
	}
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	if ev.Key() != tcell.KeyRune || ev.Rune() != 'q' {
		ed.quitArmed = false
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		if ed.store.Snapshot().TransitionInProgress.Active {
			ed.store.CancelTransition()
			ed.drag = dragNone
		} else {
			ed.selected = ""
		}
		return false
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.deleteSelected()
		return false
	case tcell.KeyTab:
		ed.cycleSelection()
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		if ed.dirty() && !ed.quitArmed {
			ed.quitArmed = true
			ed.showMessage("Unsaved changes, press q again to quit", MsgWarning)
			return false
		}
		return true
	case 'e':
		ed.toggleEnding()
	case 's':
		ed.setStart()
	case 'd':
		ed.deleteSelected()
	case 'l':
		ed.editSymbol()
	case 'u':
		ed.undo()
	case 'r':
		ed.redo()
	case 'c':
		ed.clearGraph()
	case 'w':
		ed.save()
	case 'x':
		ed.promptTape()
	}
	return false
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.inputAction = nil
	case tcell.KeyEnter:
		action := ed.inputAction
		buf := ed.inputBuffer
		ed.mode = ModeCanvas
		ed.inputAction = nil
		ed.inputBuffer = ""
		if action != nil {
			action(buf)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
}

func (ed *Editor) prompt(label, initial string, action func(string)) {
	ed.mode = ModeInput
	ed.inputPrompt = label
	ed.inputBuffer = initial
	ed.inputAction = action
}

// Editing operations

// addStateAt adds an unassigned state at a client point and selects it.
// Attaching the node ref happens in the same undo step.
func (ed *Editor) addStateAt(p geom.Point) {
	g := ed.store.Snapshot()
	local := g.ClientToLocal(p)

	ed.store.BeginGesture()
	defer ed.store.EndGesture()
	next := ed.store.ModifyState(graph.StatePatch{ID: graph.Unassigned, Location: &local})
	id, ok := next.States[len(next.States)-1].ID.Value()
	if !ok {
		return
	}
	ed.store.ModifyState(graph.StatePatch{ID: graph.Assigned(id), Boundary: nodeRef{ed: ed, id: id}})
	ed.selected = id
	ed.showMessage("Added "+id, MsgInfo)
}

func (ed *Editor) toggleEnding() {
	s, ok := ed.store.Snapshot().State(ed.selected)
	if !ok {
		ed.showMessage("Select a state first", MsgWarning)
		return
	}
	ending := !s.Ending
	ed.store.ModifyState(graph.StatePatch{ID: s.ID, Ending: &ending})
}

func (ed *Editor) setStart() {
	if _, ok := ed.store.Snapshot().State(ed.selected); !ok {
		ed.showMessage("Select a state first", MsgWarning)
		return
	}
	id := ed.selected
	ed.store.SetStartState(&id)
	ed.showMessage(id+" is the start state", MsgInfo)
}

func (ed *Editor) deleteSelected() {
	if ed.selected == "" {
		return
	}
	g := ed.store.Snapshot()
	if g.StateIndex(ed.selected) < 0 && g.TransitionIndex(ed.selected) < 0 {
		ed.selected = ""
		return
	}
	ed.store.DeleteElement(ed.selected)
	ed.showMessage("Deleted "+ed.selected, MsgInfo)
	ed.selected = ""
}

func (ed *Editor) clearGraph() {
	g := ed.store.Snapshot()
	if len(g.States) == 0 && len(g.Transitions) == 0 {
		return
	}
	ed.store.Dispatch(graph.Clear{})
	ed.selected = ""
	ed.showMessage("Cleared, press u to undo", MsgInfo)
}

// labelTarget returns the transition the symbol editor applies to: the
// selected transition, or the newest transition leaving the selected state.
func (ed *Editor) labelTarget() (graph.Transition, bool) {
	g := ed.store.Snapshot()
	if t, ok := g.Transition(ed.selected); ok {
		return t, true
	}
	out := g.TransitionsFrom(ed.selected)
	if len(out) == 0 {
		return graph.Transition{}, false
	}
	return out[len(out)-1], true
}

func (ed *Editor) editSymbol() {
	t, ok := ed.labelTarget()
	if !ok {
		ed.showMessage("No transition to label", MsgWarning)
		return
	}
	id := t.ID.String()
	ed.prompt("Symbol for "+id+": ", t.Symbol, func(symbol string) {
		ed.store.ModifyTransition(graph.TransitionPatch{ID: t.ID, Symbol: &symbol})
		ed.showMessage(fmt.Sprintf("%s labelled %q", id, symbol), MsgInfo)
	})
}

func (ed *Editor) cycleSelection() {
	g := ed.store.Snapshot()
	ids := append(g.StateIDs(), g.TransitionIDs()...)
	if len(ids) == 0 {
		ed.selected = ""
		return
	}
	next := 0
	for i, id := range ids {
		if id == ed.selected {
			next = (i + 1) % len(ids)
			break
		}
	}
	ed.selected = ids[next]
}

func (ed *Editor) undo() {
	if !ed.store.Undo() {
		ed.showMessage("Nothing to undo", MsgWarning)
		return
	}
	ed.dropStaleSelection()
	ed.showMessage("Undo", MsgInfo)
}

func (ed *Editor) redo() {
	if !ed.store.Redo() {
		ed.showMessage("Nothing to redo", MsgWarning)
		return
	}
	ed.dropStaleSelection()
	ed.showMessage("Redo", MsgInfo)
}

func (ed *Editor) dropStaleSelection() {
	g := ed.store.Snapshot()
	if g.StateIndex(ed.selected) < 0 && g.TransitionIndex(ed.selected) < 0 {
		ed.selected = ""
	}
}

// dirty reports whether the graph differs from the last load or save.
func (ed *Editor) dirty() bool {
	return !reflect.DeepEqual(graphfile.FromGraph(ed.store.Snapshot()), ed.saved)
}

// File operations

func (ed *Editor) save() {
	if ed.path == "" {
		ed.prompt("Save as: ", "", func(path string) {
			path = strings.TrimSpace(path)
			if path == "" {
				return
			}
			if filepath.Ext(path) == "" {
				path += graphfile.BundleExt
			}
			if !filepath.IsAbs(path) && ed.cfg.Editor.LastDir != "" {
				path = filepath.Join(ed.cfg.Editor.LastDir, path)
			}
			ed.path = path
			ed.save()
		})
		return
	}

	doc := graphfile.FromGraph(ed.store.Snapshot())
	name := strings.TrimSuffix(filepath.Base(ed.path), filepath.Ext(ed.path))
	if err := graphfile.WriteFile(ed.path, doc, graphfile.Meta{Name: name}); err != nil {
		ed.logger.Error("save failed", "path", ed.path, "err", err)
		ed.showMessage("Save failed: "+err.Error(), MsgError)
		return
	}
	ed.saved = doc
	ed.logger.Info("saved", "path", ed.path, "states", len(doc.States))
	ed.showMessage("Saved "+filepath.Base(ed.path), MsgSuccess)
	ed.rememberDir()
}

// rememberDir records the directory of the last save in the config file.
func (ed *Editor) rememberDir() {
	if ed.cfgPath == "" {
		return
	}
	dir, err := filepath.Abs(filepath.Dir(ed.path))
	if err != nil || dir == ed.cfg.Editor.LastDir {
		return
	}
	ed.cfg.Editor.LastDir = dir
	if err := config.SaveTo(ed.cfgPath, ed.cfg); err != nil {
		ed.logger.Warn("remember directory", "path", ed.cfgPath, "err", err)
	}
}

// Simulation

func (ed *Editor) promptTape() {
	ed.prompt("Tape: ", "", ed.runTape)
}

// runTape simulates the current graph in the background; the result comes
// back to the event loop as an interrupt.
func (ed *Editor) runTape(tape string) {
	g := ed.store.Snapshot()
	if g.StartID() == "" {
		ed.showMessage("Set a start state first", MsgWarning)
		return
	}
	sim := ed.sim
	timeout := ed.cfg.Timeout()
	ed.showMessage("Simulating...", MsgInfo)
	go func() {
		var res simResult
		res.tape = tape
		if sim == nil {
			res.resp, res.err = simulate.PrepareMachine(g).Run(tape)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			res.resp, res.err = sim.SimulateGraph(ctx, g, tape)
		}
		ed.screen.PostEvent(tcell.NewEventInterrupt(res))
	}()
}

func (ed *Editor) showSimResult(res simResult) {
	if res.err != nil {
		ed.logger.Warn("simulation failed", "tape", res.tape, "err", res.err)
		ed.showMessage(res.err.Error(), MsgError)
		return
	}
	path := strings.Join(res.resp.Path, "→")
	if res.resp.Accepted {
		ed.showMessage(fmt.Sprintf("Accepted %q: %s", res.tape, path), MsgSuccess)
		return
	}
	msg := fmt.Sprintf("Rejected %q: %s", res.tape, path)
	if res.resp.RemainingInput != "" {
		msg += fmt.Sprintf(" (stuck on %q)", res.resp.RemainingInput)
	}
	ed.showMessage(msg, MsgError)
}

// Messages

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart.Store(time.Now().UnixMilli())
}

func (ed *Editor) clearFlash() {
	ed.messageFlashStart.Store(0)
}

// flashes reports whether messages of type t flash when shown.
func flashes(t MessageType) bool {
	switch t {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	default:
		return false
	}
}

// flashInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it was shown: normal, inverted, normal,
// inverted in 125ms phases, then normal.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= 500 {
		return false
	}
	phase := elapsed / 125
	return phase == 1 || phase == 3
}
