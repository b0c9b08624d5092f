package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ha1tch/fsm-canvas/pkg/geom"
	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleState      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStateSel   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleStateInit  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStateAcc   = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleTrans      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleTransSel   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleTransDrag  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	styleUnlabelled = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorLime).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDragging   = tcell.StyleDefault.Background(tcell.ColorPurple).Foreground(tcell.ColorWhite)
)

// Box drawing runes: corners, horizontal, vertical.
var (
	boxSingle = [6]rune{'╭', '╮', '╰', '╯', '─', '│'}
	boxDouble = [6]rune{'╔', '╗', '╚', '╝', '═', '║'}
)

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()
	g := ed.store.Snapshot()

	ed.drawCanvas(g)
	if ed.sidebarWidth(w) > 0 {
		ed.drawSidebar(g, w, h)
	}
	if ed.mode == ModeInput {
		ed.drawInputBox(w, h)
	}
	ed.drawStatusBar(g, w, h)
}

func (ed *Editor) drawCanvas(g graph.Graph) {
	cw, ch := ed.canvasSize()
	if cw <= 0 || ch <= 0 {
		return
	}

	if len(g.States) == 0 {
		hint := "Click anywhere to add a state"
		ed.drawString((cw-len(hint))/2, ch/2, hint, styleHelp)
		return
	}

	// Transitions first so states render on top.
	for _, t := range g.Transitions {
		ed.drawTransition(g, t)
	}
	if tip := g.TransitionInProgress; tip.Active && tip.Start != nil {
		ed.drawTransitionInProgress(g, tip)
	}
	for _, s := range g.States {
		ed.drawState(g, s)
	}
}

func (ed *Editor) drawState(g graph.Graph, s graph.State) {
	id, ok := s.ID.Value()
	if !ok {
		return
	}
	c := g.LocalToClient(s.Location)
	cx, cy := round(c.X), round(c.Y)
	left := cx - nodeWidth/2

	style := styleState
	if s.Ending {
		style = styleStateAcc
	}
	if g.IsStart(id) {
		style = styleStateInit
	}
	if id == ed.selected {
		style = styleStateSel
	}
	if ed.drag == dragMove && id == ed.dragState {
		style = styleDragging
	}

	box := boxSingle
	if s.Ending {
		box = boxDouble
	}
	right := left + nodeWidth - 1
	ed.setCanvas(left, cy-1, box[0], style)
	ed.setCanvas(right, cy-1, box[1], style)
	ed.setCanvas(left, cy+1, box[2], style)
	ed.setCanvas(right, cy+1, box[3], style)
	for x := left + 1; x < right; x++ {
		ed.setCanvas(x, cy-1, box[4], style)
		ed.setCanvas(x, cy+1, box[4], style)
		ed.setCanvas(x, cy, ' ', style)
	}
	ed.setCanvas(left, cy, box[5], style)
	ed.setCanvas(right, cy, box[5], style)

	label := truncate(id, nodeWidth-2)
	lx := left + 1 + (nodeWidth-2-len([]rune(label)))/2
	for i, r := range []rune(label) {
		ed.setCanvas(lx+i, cy, r, style)
	}

	if g.IsStart(id) {
		ed.setCanvas(left-1, cy, '▶', styleStateInit)
	}
}

func (ed *Editor) drawTransition(g graph.Graph, t graph.Transition) {
	id, _ := t.ID.Value()
	style := styleTrans
	if id == ed.selected {
		style = styleTransSel
	}
	label := t.Symbol
	labelStyle := style
	if label == "" {
		label = "?"
		labelStyle = styleUnlabelled
	}

	if t.Start.State == t.End.State {
		c, _, ok := g.StateCircle(t.Start.State)
		if !ok {
			return
		}
		loop := "↻ " + label
		x := round(c.X) - len([]rune(loop))/2
		y := round(c.Y) - 2
		for i, r := range []rune(loop) {
			s := style
			if i > 1 {
				s = labelStyle
			}
			ed.setCanvas(x+i, y, r, s)
		}
		return
	}

	from, to, ok := g.TransitionAnchors(t, ed.cfg.Editor.ScalingFactor)
	if !ok {
		return
	}
	a, b := g.LocalToClient(from), g.LocalToClient(to)
	tip := arrowTip(a, b)
	ed.drawLine(a, tip, '·', style)
	ed.setCanvas(round(tip.X), round(tip.Y), arrowHead(a, b), style)

	mid := geom.Midpoint(a, b)
	lx := round(mid.X) - len([]rune(label))/2
	for i, r := range []rune(label) {
		ed.setCanvas(lx+i, round(mid.Y), r, labelStyle)
	}
}

func (ed *Editor) drawTransitionInProgress(g graph.Graph, tip graph.TransitionInProgress) {
	c, _, ok := g.StateCircle(tip.Start.State)
	if !ok {
		return
	}
	end := tip.End
	if c.Dist(end) < 1 {
		return
	}
	from := g.LocalToClient(g.ThrowPointToStateEdge(graph.EdgeQuery{StateID: tip.Start.State, Point: &end, Scaling: &ed.cfg.Editor.ScalingFactor}))
	ed.drawLine(from, end, '·', styleTransDrag)
	ed.setCanvas(round(end.X), round(end.Y), arrowHead(from, end), styleTransDrag)
}

// drawLine rasterises the segment a-b with Bresenham's algorithm.
func (ed *Editor) drawLine(a, b geom.Point, r rune, style tcell.Style) {
	x0, y0 := round(a.X), round(a.Y)
	x1, y1 := round(b.X), round(b.Y)
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		ed.setCanvas(x0, y0, r, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// arrowTip backs the end of a-b off by one cell so the head stays clear of
// the target box.
func arrowTip(a, b geom.Point) geom.Point {
	d := a.Dist(b)
	if d <= 1 {
		return b
	}
	return b.Sub(b.Sub(a).Scale(1 / d))
}

// arrowHead picks the arrow rune for a segment ending at b. Rows count
// double since cells are twice as tall as they are wide.
func arrowHead(a, b geom.Point) rune {
	dx, dy := b.X-a.X, 2*(b.Y-a.Y)
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy >= 0 {
		return '▼'
	}
	return '▲'
}

func (ed *Editor) drawSidebar(g graph.Graph, w, h int) {
	sw := ed.sidebarWidth(w)
	divider := w - sw
	bottom := h - 2
	for y := 0; y < bottom; y++ {
		ed.screen.SetContent(divider, y, '│', nil, styleBorder)
	}

	x := divider + 2
	width := sw - 3
	y := 0
	line := func(s string, style tcell.Style) {
		if y < bottom {
			ed.drawString(x, y, truncate(s, width), style)
		}
		y++
	}

	line("States", styleSidebarH)
	for _, s := range g.States {
		id := s.ID.String()
		marker := " "
		if g.IsStart(id) {
			marker = "▶"
		}
		text := marker + " " + id
		if s.Ending {
			text += " (accepting)"
		}
		style := styleSidebar
		if id == ed.selected {
			style = styleStateSel
		}
		line(text, style)
	}

	y++
	line("Transitions", styleSidebarH)
	for _, t := range g.Transitions {
		id := t.ID.String()
		symbol := t.Symbol
		if symbol == "" {
			symbol = "?"
		}
		style := styleSidebar
		if id == ed.selected {
			style = styleTransSel
		}
		line(fmt.Sprintf("%-4s %s→%s %s", id, t.Start.State, t.End.State, symbol), style)
	}
}

func (ed *Editor) drawStatusBar(g graph.Graph, w, h int) {
	y := h - 1

	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.path != "" {
		fileInfo = filepath.Base(ed.path)
	}
	if ed.dirty() {
		fileInfo += " *"
	}
	fileInfo += fmt.Sprintf("  %d states  %d transitions", len(g.States), len(g.Transitions))
	ed.drawString(1, y, fileInfo, styleStatus)

	modeStr := ed.modeString(g)
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	if ed.message != "" {
		style := ed.messageStyle(time.Now().UnixMilli())
		msg := truncate(ed.message, w/2-2)
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, truncate(ed.helpString(), w-2), styleHelp)
}

// messageStyle returns the status bar style of the current message at
// wall clock time now in milliseconds.
func (ed *Editor) messageStyle(now int64) tcell.Style {
	style := styleMsgInfo
	switch ed.messageType {
	case MsgError:
		style = styleMsgError
	case MsgSuccess:
		style = styleMsgSuccess
	case MsgWarning:
		style = styleMsgWarning
	}
	start := ed.messageFlashStart.Load()
	if start > 0 && flashes(ed.messageType) && flashInverted(now-start) {
		style = style.Reverse(true)
	}
	return style
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 50
	if boxW > w-2 {
		boxW = w - 2
	}
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	text := ed.inputPrompt + ed.inputBuffer + "_"
	if n := len([]rune(text)); n > boxW-4 {
		text = string([]rune(text)[n-(boxW-4):])
	}
	ed.drawString(boxX+2, boxY+1, text, styleInput)
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

// setCanvas draws one cell, clipped to the canvas area.
func (ed *Editor) setCanvas(x, y int, r rune, style tcell.Style) {
	cw, ch := ed.canvasSize()
	if x < 0 || y < 0 || x >= cw || y >= ch {
		return
	}
	ed.screen.SetContent(x, y, r, nil, style)
}

func (ed *Editor) modeString(g graph.Graph) string {
	switch {
	case ed.mode == ModeInput:
		return "INPUT"
	case g.TransitionInProgress.Active:
		return "LINK"
	case ed.drag == dragMove:
		return "MOVE"
	default:
		return ""
	}
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	default:
		return "Click:Add  Drag:Move  Drag rim:Link  Tab:Select  E:Accept  S:Start  L:Label  D:Delete  X:Run  U/R:Undo/Redo  C:Clear  W:Save  Q:Quit"
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		if maxLen < 0 {
			maxLen = 0
		}
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func round(f float64) int {
	return int(math.Round(f))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
