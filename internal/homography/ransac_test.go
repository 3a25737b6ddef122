package homography

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestIterationBudget(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		maxIter  int
		p        float64
		ratio    float64
		expected int
	}{
		{"perfect fit", 10000, 10000, 0.99, 1.0, 1},
		{"half inliers", 10000, 10000, 0.99, 0.5, 71},
		{"ninety percent", 10000, 10000, 0.99, 0.9, 4},
		{"no inliers clamps to max", 10000, 10000, 0.99, 0, 10000},
		{"nan ratio clamps to max", 500, 500, 0.99, math.NaN(), 500},
		{"tiny ratio clamps to max", 10000, 10000, 0.99, 1e-5, 10000},
		{"never exceeds current", 20, 10000, 0.99, 0.5, 20},
		{"current above max", 50000, 100, 0.99, 0.1, 100},
		{"at least one", 10000, 10000, 0.5, 0.99, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, iterationBudget(tt.current, tt.maxIter, tt.p, tt.ratio))
		})
	}
}

// TestIterationBudget_Monotone verifies the budget never grows and stays in [1, max].
func TestIterationBudget_Monotone(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("budget is non-increasing and bounded", prop.ForAll(
		func(current, maxIter int, p, ratio float64) bool {
			b := iterationBudget(current, maxIter, p, ratio)
			return b >= 1 && b <= maxIter && b <= current
		},
		gen.IntRange(1, 20000),
		gen.IntRange(20000, 50000),
		gen.Float64Range(0.5, 0.999),
		gen.Float64Range(0, 1),
	))

	properties.Property("more inliers never need more iterations", prop.ForAll(
		func(p, r1, r2 float64) bool {
			lo, hi := math.Min(r1, r2), math.Max(r1, r2)
			return iterationBudget(10000, 10000, p, hi) <= iterationBudget(10000, 10000, p, lo)
		},
		gen.Float64Range(0.5, 0.999),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestHypothesis_RejectsDegenerateSamples(t *testing.T) {
	square := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	moved := []r2.Point{{X: 1, Y: 2}, {X: 12, Y: 1}, {X: 11, Y: 13}, {X: -1, Y: 9}}

	_, _, ok := hypothesis(square, moved)
	assert.True(t, ok)

	line := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	_, _, ok = hypothesis(line, moved)
	assert.False(t, ok, "collinear first sample")
	_, _, ok = hypothesis(square, line)
	assert.False(t, ok, "collinear second sample")

	repeated := []r2.Point{square[0], square[1], square[1], square[3]}
	_, _, ok = hypothesis(repeated, moved)
	assert.False(t, ok, "repeated point")
}
