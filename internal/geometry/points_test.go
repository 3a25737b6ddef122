package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
)

func TestCentroidAndMeanDistance(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	c := Centroid(pts)
	assert.Equal(t, r2.Point{X: 1, Y: 1}, c)
	assert.InDelta(t, math.Sqrt2, MeanDistance(pts, c), 1e-12)

	assert.Equal(t, r2.Point{}, Centroid(nil))
	assert.Equal(t, 0.0, MeanDistance(nil, r2.Point{}))
}

func TestSelect(t *testing.T) {
	pts := []r2.Point{{X: 0}, {X: 1}, {X: 2}}
	assert.Equal(t, []r2.Point{{X: 2}, {X: 0}, {X: 2}}, Select(pts, []int{2, 0, 2}))
	assert.Empty(t, Select(pts, nil))
}

func TestCollinear(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c r2.Point
		want    bool
	}{
		{"on a line", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}, r2.Point{X: 5, Y: 5}, true},
		{"triangle", r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 1}, false},
		{"coincident", r2.Point{X: 3, Y: 3}, r2.Point{X: 3, Y: 3}, r2.Point{X: 3, Y: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Collinear(tt.a, tt.b, tt.c, 1e-9))
		})
	}
}

func TestInGeneralPosition(t *testing.T) {
	square := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	assert.True(t, InGeneralPosition(square, 1e-9))

	withLine := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 1}}
	assert.False(t, InGeneralPosition(withLine, 1e-9))
}

func TestCollinear_ScaleInvariant(t *testing.T) {
	a, b, c := r2.Point{X: 0, Y: 0}, r2.Point{X: 100, Y: 0}, r2.Point{X: 50, Y: 1e-3}
	for _, s := range []float64{1e-3, 1, 1e3} {
		off := r2.Point{X: 1e5, Y: -2e5}
		got := Collinear(a.Mul(s).Add(off), b.Mul(s).Add(off), c.Mul(s).Add(off), 1e-6)
		assert.False(t, got, "scale %v", s)
		got = Collinear(a.Mul(s).Add(off), b.Mul(s).Add(off), c.Mul(s).Add(off), 1e-4)
		assert.True(t, got, "scale %v", s)
	}
}

func TestIsFinitePoint(t *testing.T) {
	assert.True(t, IsFinitePoint(r2.Point{X: 1, Y: 2}))
	assert.False(t, IsFinitePoint(r2.Point{X: math.NaN()}))
	assert.False(t, IsFinitePoint(r2.Point{Y: math.Inf(-1)}))
}
