package graphfile

import (
	"math"

	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// Options controls SVG and PNG rendering.
type Options struct {
	Width       int    // canvas width in pixels
	Height      int    // canvas height in pixels
	Title       string // diagram title
	FontSize    int    // font size for state labels
	LabelSize   int    // font size for transition labels (0 = FontSize - 2)
	TitleSize   int    // font size for the title (0 = FontSize + 4)
	StateRadius int    // radius of state circles
	Padding     int    // padding around the drawing
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Width:       800,
		Height:      600,
		FontSize:    14,
		StateRadius: 30,
		Padding:     40,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.FontSize <= 0 {
		o.FontSize = def.FontSize
	}
	if o.LabelSize <= 0 {
		o.LabelSize = o.FontSize - 2
	}
	if o.TitleSize <= 0 {
		o.TitleSize = o.FontSize + 4
	}
	if o.StateRadius <= 0 {
		o.StateRadius = def.StateRadius
	}
	if o.Padding <= 0 {
		o.Padding = def.Padding
	}
	return o
}

type sceneState struct {
	id        string
	at        geom.Point
	initial   bool
	accepting bool
}

type edgeKind int

const (
	edgeStraight edgeKind = iota
	edgeCurved
	edgeSelf
)

type sceneEdge struct {
	kind     edgeKind
	from, to geom.Point // anchors on the state circles
	control  geom.Point // quadratic control point of curved edges
	center   geom.Point // state centre of self loops
	label    string
	labelAt  geom.Point
}

// scene is a document laid out in canvas pixels.
type scene struct {
	opts   Options
	radius float64
	states []sceneState
	edges  []sceneEdge
}

const (
	titleSpace  = 35.0
	curveOffset = 20.0
	labelOffset = 12.0
)

// layoutScene fits the stored state locations into the canvas and routes
// every edge between circle anchors.
func layoutScene(d Document, opts Options) scene {
	opts = opts.withDefaults()
	sc := scene{opts: opts, radius: float64(opts.StateRadius)}

	var minX, minY, maxX, maxY float64
	first := true
	for _, s := range d.States {
		if !s.ID.IsAssigned() {
			continue
		}
		p := s.Location
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	top := float64(opts.Padding)
	if opts.Title != "" {
		top += titleSpace
	}
	availW := float64(opts.Width-2*opts.Padding) - 2*sc.radius
	availH := float64(opts.Height-opts.Padding) - top - 2*sc.radius
	availW, availH = math.Max(availW, 0), math.Max(availH, 0)

	contentW, contentH := maxX-minX, maxY-minY
	scale := math.Inf(1)
	if contentW > 1e-9 {
		scale = availW / contentW
	}
	if contentH > 1e-9 {
		scale = math.Min(scale, availH/contentH)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}

	offX := float64(opts.Padding) + sc.radius + (availW-contentW*scale)/2
	offY := top + sc.radius + (availH-contentH*scale)/2

	pos := make(map[string]geom.Point)
	start := ""
	if d.Starting != nil {
		start = *d.Starting
	}
	for _, s := range d.States {
		id, ok := s.ID.Value()
		if !ok {
			continue
		}
		at := geom.Point{
			X: offX + (s.Location.X-minX)*scale,
			Y: offY + (s.Location.Y-minY)*scale,
		}
		pos[id] = at
		sc.states = append(sc.states, sceneState{
			id:        id,
			at:        at,
			initial:   id == start,
			accepting: s.Ending,
		})
	}

	groups := groupEdges(d)
	pairs := make(map[[2]string]bool, len(groups))
	for _, g := range groups {
		pairs[[2]string{g.from, g.to}] = true
	}

	for _, g := range groups {
		c1, ok1 := pos[g.from]
		c2, ok2 := pos[g.to]
		if !ok1 || !ok2 {
			continue
		}

		if g.from == g.to {
			sc.edges = append(sc.edges, sceneEdge{
				kind:    edgeSelf,
				center:  c1,
				label:   g.label,
				labelAt: geom.Point{X: c1.X, Y: c1.Y - sc.radius*2.2 - 8},
			})
			continue
		}

		dir, ok := unit(c2.Sub(c1))
		if !ok {
			continue
		}
		e := sceneEdge{kind: edgeStraight, label: g.label}
		e.from = anchor(c1, g.start.Offset, dir, sc.radius)
		e.to = anchor(c2, g.end.Offset, dir.Scale(-1), sc.radius+2)

		perp := geom.Point{X: -dir.Y, Y: dir.X}
		if pairs[[2]string{g.to, g.from}] {
			e.kind = edgeCurved
			e.control = geom.Midpoint(c1, c2).Add(perp.Scale(curveOffset))
			e.labelAt = e.control.Add(perp.Scale(labelOffset / 2))
		} else {
			e.labelAt = geom.Midpoint(e.from, e.to).Add(perp.Scale(labelOffset))
		}
		sc.edges = append(sc.edges, e)
	}

	return sc
}

// anchor places an edge end on the circle around c. A stored offset picks
// the direction; otherwise the edge heads along fallback.
func anchor(c, offset, fallback geom.Point, r float64) geom.Point {
	dir, ok := unit(offset)
	if !ok {
		dir = fallback
	}
	return c.Add(dir.Scale(r))
}

func unit(p geom.Point) (geom.Point, bool) {
	n := math.Hypot(p.X, p.Y)
	if n < 1e-9 {
		return geom.Point{}, false
	}
	return p.Scale(1 / n), true
}
