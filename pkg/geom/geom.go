// Package geom provides the plane geometry used to place states and route
// transitions: midpoints, line equations, circle intersections and the
// transform between client (pixel) and local (viewport) coordinates.
//
// A Point carries no record of which space it belongs to; callers track that.
package geom

import (
	"fmt"
	"math"
)

// Point represents a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Origin returns the zero point. It is the fallback result of every lookup
// that cannot be resolved.
func Origin() Point {
	return Point{}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point {
	return Point{p.X * k, p.Y * k}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Size mirrors the attributes of an SVG viewBox. MinX and MinY offset the
// coordinate origin.
type Size struct {
	MinX   float64 `json:"minX" toml:"min_x"`
	MinY   float64 `json:"minY" toml:"min_y"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Equal reports field-wise equality.
func (s Size) Equal(o Size) bool {
	return s.MinX == o.MinX && s.MinY == o.MinY &&
		s.Width == o.Width && s.Height == o.Height
}

// ViewBox formats the size as an SVG viewBox attribute value.
func (s Size) ViewBox() string {
	return fmt.Sprintf("%g %g %g %g", s.MinX, s.MinY, s.Width, s.Height)
}

// Rect is an on-screen bounding rectangle in client space.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Left+r.Width &&
		p.Y >= r.Top && p.Y <= r.Top+r.Height
}

// Circle returns the circle inscribed in r, using the width as diameter.
func (r Rect) Circle() (center Point, radius float64) {
	radius = r.Width / 2
	return Point{r.Left + radius, r.Top + radius}, radius
}

// Midpoint returns the point halfway between p1 and p2.
func Midpoint(p1, p2 Point) Point {
	return Point{
		X: math.Min(p1.X, p2.X) + math.Abs(p2.X-p1.X)/2,
		Y: math.Min(p1.Y, p2.Y) + math.Abs(p2.Y-p1.Y)/2,
	}
}

// Line is y = A*x + B.
type Line struct {
	A, B float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.A*x + l.B
}

// ComputeLine returns the line through p1 and p2.
//
// A vertical segment has no slope-intercept form; its zero run is replaced
// by 1, so the result is a steep but not vertical approximation.
func ComputeLine(p1, p2 Point) Line {
	dx := p2.X - p1.X
	if dx == 0 {
		dx = 1
	}
	a := (p2.Y - p1.Y) / dx
	return Line{A: a, B: p1.Y - a*p1.X}
}

// ComputeThirdPoint intersects line (which passes through center) with the
// circle of the given radius around center, and returns the crossing on the
// side of toward. The side is picked by comparing toward.X with center.X.
func ComputeThirdPoint(radius float64, line Line, center, toward Point) Point {
	// (x - cx)^2 + (a*x + b - cy)^2 = r^2, expanded to e*x^2 + f*x + g = 0
	e := line.A*line.A + 1
	f := 2*line.A*line.B - 2*line.A*center.Y - 2*center.X
	g := line.B*line.B - 2*line.B*center.Y + center.Y*center.Y +
		center.X*center.X - radius*radius

	disc := f*f - 4*e*g
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)

	var x float64
	if toward.X < center.X {
		x = (-f - root) / (2 * e)
	} else {
		x = (-f + root) / (2 * e)
	}
	return Point{X: x, Y: line.At(x)}
}

// PointIsAtEdgeOfCircle reports whether p lies farther than
// scalingFactor*radius from center.
func PointIsAtEdgeOfCircle(center, p Point, radius, scalingFactor float64) bool {
	return center.Dist(p) > scalingFactor*radius
}
