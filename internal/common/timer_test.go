package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("estimate")
	assert.Equal(t, "estimate", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())
	assert.GreaterOrEqual(t, timer.Milliseconds(), 10.0)

	str := timer.String()
	assert.Contains(t, str, "estimate")
	assert.Contains(t, str, "ms")
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	timer := NewTimer()
	first := timer.Stop()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, first, timer.Stop())
	assert.Empty(t, timer.Name())
}

func TestTimer_DurationWhileRunning(t *testing.T) {
	timer := NewTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 2*time.Millisecond)
}
