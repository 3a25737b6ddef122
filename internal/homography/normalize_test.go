package homography

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/homest/internal/geometry"
)

func TestNormalizingSimilarity(t *testing.T) {
	pts := []r2.Point{{X: 100, Y: 200}, {X: 140, Y: 200}, {X: 140, Y: 260}, {X: 90, Y: 250}, {X: 120, Y: 230}}

	s, err := NormalizingSimilarity(pts)
	require.NoError(t, err)
	assert.Equal(t, s[0][0], s[1][1])
	assert.Equal(t, 0.0, s[0][1])
	assert.Equal(t, [3]float64{0, 0, 1}, s[2])

	normalized, t2, err := normalizePoints(pts)
	require.NoError(t, err)
	assert.Equal(t, s, t2)

	c := geometry.Centroid(normalized)
	assert.InDelta(t, 0, c.X, 1e-12)
	assert.InDelta(t, 0, c.Y, 1e-12)
	assert.InDelta(t, math.Sqrt2, geometry.MeanDistance(normalized, c), 1e-12)

	for i, pt := range pts {
		viaMatrix, ok := s.Apply(pt)
		require.True(t, ok)
		assert.InDelta(t, viaMatrix.X, normalized[i].X, 1e-12)
		assert.InDelta(t, viaMatrix.Y, normalized[i].Y, 1e-12)
	}
}

func TestNormalizingSimilarity_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []r2.Point
	}{
		{"empty", nil},
		{"single point", []r2.Point{{X: 3, Y: 4}}},
		{"coincident points", []r2.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}},
		{"non-finite", []r2.Point{{X: math.Inf(1), Y: 0}, {X: 0, Y: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizingSimilarity(tt.pts)
			assert.ErrorIs(t, err, ErrDegenerate)
		})
	}
}
