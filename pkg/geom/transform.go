package geom

// Matrix is a 2D affine transform in SVG CTM layout:
//
//	| A C E |
//	| B D F |
//
// Viewport transforms never rotate or skew, so only A, D, E and F are read.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// ScaleTranslate builds a transform that scales by (sx, sy) and then
// translates by (tx, ty).
func ScaleTranslate(sx, sy, tx, ty float64) Matrix {
	return Matrix{A: sx, D: sy, E: tx, F: ty}
}

// Invertible reports whether both scale components are non-zero.
func (m Matrix) Invertible() bool {
	return m.A != 0 && m.D != 0
}

// ClientToLocal maps a client point into local coordinates. A singular
// transform maps everything to the origin.
func ClientToLocal(m Matrix, p Point) Point {
	if !m.Invertible() {
		return Origin()
	}
	return Point{
		X: (p.X - m.E) / m.A,
		Y: (p.Y - m.F) / m.D,
	}
}

// LocalToClient maps a local point into client coordinates.
func LocalToClient(m Matrix, p Point) Point {
	return Point{
		X: m.A*p.X + m.E,
		Y: m.D*p.Y + m.F,
	}
}

// ViewportMatrix returns the transform that fits size into a client area of
// w by h pixels whose top-left corner is at (left, top), stretching each
// axis independently.
func ViewportMatrix(size Size, left, top, w, h float64) Matrix {
	if size.Width == 0 || size.Height == 0 {
		return Matrix{}
	}
	sx := w / size.Width
	sy := h / size.Height
	return ScaleTranslate(sx, sy, left-size.MinX*sx, top-size.MinY*sy)
}
