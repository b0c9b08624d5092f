// PNG rendering for graph documents.
// Mirrors the SVG renderer output using Go's image packages.

package graphfile

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/fsm-canvas/pkg/geom"
)

// supersample is the factor the image is drawn at before downsampling.
const supersample = 4

var (
	colorWhite      = color.RGBA{255, 255, 255, 255}
	colorBlack      = color.RGBA{51, 51, 51, 255}    // #333
	colorGray       = color.RGBA{102, 102, 102, 255} // #666
	colorInitial    = color.RGBA{232, 245, 233, 255} // #e8f5e9
	colorInitialBdr = color.RGBA{46, 125, 50, 255}   // #2e7d32
	colorAccepting  = color.RGBA{255, 243, 224, 255} // #fff3e0
	colorAcceptBdr  = color.RGBA{230, 81, 0, 255}    // #e65100
	colorBoth       = color.RGBA{227, 242, 253, 255} // #e3f2fd
	colorBothBdr    = color.RGBA{21, 101, 192, 255}  // #1565c0
)

type renderContext struct {
	img       *image.RGBA
	scale     float64
	lineWidth float64
	face      font.Face
	labelFace font.Face
	titleFace font.Face
}

func newRenderContext(img *image.RGBA, opts Options, scale int) (*renderContext, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	newFace := func(size int) (font.Face, error) {
		return opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	ctx := &renderContext{
		img:       img,
		scale:     float64(scale),
		lineWidth: float64(scale) * 1.5,
	}
	if ctx.face, err = newFace(opts.FontSize); err != nil {
		return nil, err
	}
	if ctx.labelFace, err = newFace(opts.LabelSize); err != nil {
		return nil, err
	}
	if ctx.titleFace, err = newFace(opts.TitleSize); err != nil {
		return nil, err
	}
	return ctx, nil
}

// RenderPNG renders d to PNG. The drawing is supersampled and scaled down
// for smoother output.
func RenderPNG(d Document, w io.Writer, opts Options) error {
	opts = opts.withDefaults()

	large := opts
	large.Width *= supersample
	large.Height *= supersample
	large.Padding *= supersample
	large.StateRadius *= supersample
	large.FontSize *= supersample
	large.LabelSize *= supersample
	large.TitleSize *= supersample

	img, err := renderImage(d, large, supersample)
	if err != nil {
		return err
	}

	final := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(final, final.Bounds(), img, img.Bounds(), draw.Over, nil)
	return png.Encode(w, final)
}

func renderImage(d Document, opts Options, scale int) (*image.RGBA, error) {
	sc := layoutScene(d, opts)
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)

	ctx, err := newRenderContext(img, sc.opts, scale)
	if err != nil {
		return nil, err
	}
	r := sc.radius

	if sc.opts.Title != "" {
		drawTextCentered(ctx, ctx.titleFace, sc.opts.Width/2, int(20*ctx.scale), sc.opts.Title, colorBlack)
	}

	for _, e := range sc.edges {
		switch e.kind {
		case edgeSelf:
			x, y := e.center.X, e.center.Y
			loop := r * 0.6
			drawCubicArrow(ctx,
				geom.Point{X: x - r*0.7, Y: y - r*0.7},
				geom.Point{X: x - loop*1.5, Y: y - r - loop*2},
				geom.Point{X: x + loop*1.5, Y: y - r - loop*2},
				geom.Point{X: x + r*0.7, Y: y - r*0.7},
				colorGray)
		case edgeCurved:
			drawQuadBezierArrow(ctx, e.from, e.control, e.to, colorBlack)
		default:
			drawArrowLine(ctx, e.from, e.to, colorBlack)
		}
		if e.label != "" {
			drawTextCentered(ctx, ctx.labelFace, int(e.labelAt.X), int(e.labelAt.Y), e.label, colorBlack)
		}
	}

	for _, s := range sc.states {
		fill, stroke := stateColors(s)
		if s.initial {
			drawArrowLine(ctx,
				geom.Point{X: s.at.X - r - 30*ctx.scale, Y: s.at.Y},
				geom.Point{X: s.at.X - r - 2, Y: s.at.Y},
				colorBlack)
		}
		drawCircle(ctx, s.at, r, fill, stroke)
		if s.accepting {
			drawCircle(ctx, s.at, r-4*ctx.scale, color.Transparent, stroke)
		}
		drawTextCentered(ctx, ctx.face, int(s.at.X), int(s.at.Y), s.id, colorBlack)
	}

	return img, nil
}

func stateColors(s sceneState) (fill, stroke color.Color) {
	switch {
	case s.initial && s.accepting:
		return colorBoth, colorBothBdr
	case s.initial:
		return colorInitial, colorInitialBdr
	case s.accepting:
		return colorAccepting, colorAcceptBdr
	}
	return colorWhite, colorBlack
}

// drawCircle draws a circle outline and optional fill.
func drawCircle(ctx *renderContext, c geom.Point, r float64, fill, stroke color.Color) {
	img := ctx.img

	if fill != color.Transparent {
		for dy := -r; dy <= r; dy++ {
			xExtent := math.Sqrt(math.Max(r*r-dy*dy, 0))
			for dx := -xExtent; dx <= xExtent; dx++ {
				img.Set(int(c.X+dx), int(c.Y+dy), fill)
			}
		}
	}

	step := 1 / math.Max(r, 1)
	for angle := 0.0; angle < 2*math.Pi; angle += step {
		nx, ny := math.Cos(angle), math.Sin(angle)
		for t := -ctx.lineWidth / 2; t <= ctx.lineWidth/2; t += 0.5 {
			img.Set(int(c.X+nx*(r+t)), int(c.Y+ny*(r+t)), stroke)
		}
	}
}

// drawLine draws a line between two points with the context's thickness.
func drawLine(ctx *renderContext, a, b geom.Point, c color.Color) {
	img := ctx.img
	half := ctx.lineWidth / 2

	dx, dy := b.X-a.X, b.Y-a.Y
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		for ty := -half; ty <= half; ty++ {
			for tx := -half; tx <= half; tx++ {
				img.Set(int(a.X+tx), int(a.Y+ty), c)
			}
		}
		return
	}

	perpX, perpY := -dy/dist, dx/dist
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx, cy := a.X+dx*t, a.Y+dy*t
		for off := -half; off <= half; off += 0.5 {
			img.Set(int(cx+perpX*off), int(cy+perpY*off), c)
		}
	}
}

// drawArrowHead fills an arrowhead at tip pointing away from tail.
func drawArrowHead(ctx *renderContext, tail, tip geom.Point, c color.Color) {
	dir, ok := unit(tip.Sub(tail))
	if !ok {
		return
	}
	length, width := 8.0*ctx.scale, 4.0*ctx.scale
	back := tip.Sub(dir.Scale(length))
	w1 := geom.Point{X: back.X + dir.Y*width, Y: back.Y - dir.X*width}
	w2 := geom.Point{X: back.X - dir.Y*width, Y: back.Y + dir.X*width}

	for t := 0.0; t <= 1.0; t += 0.05 {
		drawLine(ctx, tip, w1.Add(w2.Sub(w1).Scale(t)), c)
	}
}

func drawArrowLine(ctx *renderContext, a, b geom.Point, c color.Color) {
	drawLine(ctx, a, b, c)
	drawArrowHead(ctx, a, b, c)
}

func drawQuadBezierArrow(ctx *renderContext, a, ctl, b geom.Point, c color.Color) {
	const steps = 100
	prev := a
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		p := a.Scale((1 - t) * (1 - t)).Add(ctl.Scale(2 * (1 - t) * t)).Add(b.Scale(t * t))
		drawLine(ctx, prev, p, c)
		prev = p
	}
	drawArrowHead(ctx, ctl, b, c)
}

func drawCubicArrow(ctx *renderContext, a, c1, c2, b geom.Point, c color.Color) {
	const steps = 100
	prev := a
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		u := 1 - t
		p := a.Scale(u * u * u).
			Add(c1.Scale(3 * u * u * t)).
			Add(c2.Scale(3 * u * t * t)).
			Add(b.Scale(t * t * t))
		drawLine(ctx, prev, p, c)
		prev = p
	}
	drawArrowHead(ctx, c2, b, c)
}

// drawTextCentered draws text centred on (x, y).
func drawTextCentered(ctx *renderContext, face font.Face, x, y int, text string, c color.Color) {
	width := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	d := &font.Drawer{
		Dst:  ctx.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x - width/2),
			Y: fixed.I(y + int(float64(ascent)*0.35)),
		},
	}
	d.DrawString(text)
}
