// Package benchmark measures estimator speed and accuracy on synthetic data.
package benchmark

import (
	"fmt"
	"runtime"
	"time"

	"github.com/MeKo-Tech/homest/internal/common"
)

// MemoryStats holds the allocation counters sampled around a run.
type MemoryStats struct {
	TotalAllocBytes uint64 // Total allocated bytes (cumulative)
	NumGC           uint32 // Number of GC runs
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		TotalAllocBytes: m.TotalAlloc,
		NumGC:           m.NumGC,
	}
}

// Result holds the outcome of one benchmark run.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// Allocated returns the bytes allocated during the run.
func (r Result) Allocated() uint64 {
	return r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes
}

// GCRuns returns the number of garbage collections during the run.
func (r Result) GCRuns() uint32 {
	return r.MemoryAfter.NumGC - r.MemoryBefore.NumGC
}

// Benchmark represents a benchmark function.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
}

// NewSuite creates a new benchmark suite.
func NewSuite() *Suite {
	return &Suite{
		benchmarks: make([]Benchmark, 0),
	}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{
		Name: name,
		Func: fn,
	})
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return s.runBenchmark(b, iterations)
		}
	}
	return Result{
		Name:  name,
		Error: fmt.Errorf("benchmark '%s' not found", name),
	}
}

// runBenchmark calls b.Func iterations times, stopping at the first error.
func (s *Suite) runBenchmark(b Benchmark, iterations int) Result {
	runtime.GC()
	memBefore := GetMemoryStats()

	timer := common.NewNamedTimer(b.Name)
	var err error
	for range iterations {
		if e := b.Func(); e != nil {
			err = e
			break
		}
	}
	duration := timer.Stop()

	return Result{
		Name:         b.Name,
		Duration:     duration,
		MemoryBefore: memBefore,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   iterations,
		Error:        err,
	}
}
