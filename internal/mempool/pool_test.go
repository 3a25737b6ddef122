package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "zero size", input: 0, expected: 128},
		{name: "negative size", input: -1, expected: 128},
		{name: "small size gets minimum", input: 72, expected: 128},
		{name: "exactly minimum", input: 128, expected: 128},
		{name: "just over minimum", input: 129, expected: 1024},
		{name: "exactly 1024", input: 1024, expected: 1024},
		{name: "just over 1024", input: 1025, expected: 2048},
		{name: "large size", input: 10000, expected: 10240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, 0, classOf(0))
	assert.Equal(t, 0, classOf(100))
	assert.Equal(t, 128, classOf(128))
	assert.Equal(t, 128, classOf(500))
	assert.Equal(t, 1024, classOf(1500))
	assert.Equal(t, 2048, classOf(2048))
}

func TestGetInts(t *testing.T) {
	for _, n := range []int{0, 4, 300, 5000} {
		buf := GetInts(n)
		assert.Len(t, buf, n)
		assert.GreaterOrEqual(t, cap(buf), sizeClass(n))
		if n > 0 {
			buf[n-1] = 42
			assert.Equal(t, 42, buf[n-1])
		}
		PutInts(buf)
	}
}

func TestGetFloat64(t *testing.T) {
	buf := GetFloat64(72)
	assert.Len(t, buf, 72)
	assert.GreaterOrEqual(t, cap(buf), 128)
	PutFloat64(buf)
}

func TestPutIgnoresUnusableBuffers(t *testing.T) {
	assert.NotPanics(t, func() {
		PutInts(nil)
		PutInts(make([]int, 10))
		PutFloat64(nil)
		PutFloat64(make([]float64, 3, 50))
	})
}

func TestForeignBufferServesItsClass(t *testing.T) {
	PutInts(make([]int, 1500))
	for range 4 {
		buf := GetInts(1000)
		assert.Len(t, buf, 1000)
		assert.GreaterOrEqual(t, cap(buf), 1024)
		PutInts(buf)
	}
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 200 {
				n := (g*37 + i) % 3000
				buf := GetInts(n)
				for j := range buf {
					buf[j] = j
				}
				if n > 0 {
					assert.Equal(t, n-1, buf[n-1])
				}
				PutInts(buf)
			}
		}(g)
	}
	wg.Wait()
}

func BenchmarkGetInts(b *testing.B) {
	for b.Loop() {
		PutInts(GetInts(1000))
	}
}

func BenchmarkDirectAllocation(b *testing.B) {
	for b.Loop() {
		_ = make([]int, 1000)
	}
}
