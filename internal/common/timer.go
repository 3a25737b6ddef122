// Package common holds small helpers shared by the commands and the server.
package common

import (
	"fmt"
	"time"
)

// Timer measures a single operation, such as one estimation.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
	stopped  bool
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records the elapsed time. Later calls return the first measurement.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Duration returns the recorded duration, or the running time if the timer
// has not been stopped.
func (t *Timer) Duration() time.Duration {
	if !t.stopped {
		return time.Since(t.start)
	}
	return t.duration
}

// Milliseconds returns Duration as fractional milliseconds.
func (t *Timer) Milliseconds() float64 {
	return float64(t.Duration().Microseconds()) / 1000
}

// Name returns the timer label.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.Duration())
	}
	return t.Duration().String()
}
