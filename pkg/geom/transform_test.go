package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientLocalRoundTrip(t *testing.T) {
	matrices := []Matrix{
		Identity(),
		ScaleTranslate(2, 2, 10, 20),
		ScaleTranslate(0.25, 3, -100, 7.5),
		ScaleTranslate(-1, 1, 640, 0),
		ViewportMatrix(Size{MinX: -50, MinY: 10, Width: 300, Height: 200}, 8, 16, 1024, 768),
	}
	points := []Point{{0, 0}, {1, 1}, {-13.5, 99}, {1e4, -1e4}, {0.001, 0.002}}

	for _, m := range matrices {
		for _, p := range points {
			back := ClientToLocal(m, LocalToClient(m, p))
			assert.InDelta(t, p.X, back.X, 1e-6, "matrix %+v point %v", m, p)
			assert.InDelta(t, p.Y, back.Y, 1e-6, "matrix %+v point %v", m, p)

			fwd := LocalToClient(m, ClientToLocal(m, p))
			assert.InDelta(t, p.X, fwd.X, 1e-6)
			assert.InDelta(t, p.Y, fwd.Y, 1e-6)
		}
	}
}

func TestClientToLocal(t *testing.T) {
	m := ScaleTranslate(2, 4, 10, 20)
	assert.Equal(t, Point{5, 5}, ClientToLocal(m, Point{20, 40}))
	assert.Equal(t, Point{20, 40}, LocalToClient(m, Point{5, 5}))
}

func TestSingularMatrix(t *testing.T) {
	assert.Equal(t, Origin(), ClientToLocal(Matrix{}, Point{5, 5}))
	assert.False(t, Matrix{A: 1}.Invertible())
}

func TestViewportMatrix(t *testing.T) {
	s := Size{MinX: 0, MinY: 0, Width: 200, Height: 100}
	m := ViewportMatrix(s, 0, 0, 400, 100)
	assert.Equal(t, Point{400, 100}, LocalToClient(m, Point{200, 100}))
	assert.Equal(t, Point{100, 50}, ClientToLocal(m, Point{200, 50}))

	assert.False(t, ViewportMatrix(Size{}, 0, 0, 10, 10).Invertible())
}
