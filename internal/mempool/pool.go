// Package mempool keeps sized pools of scratch buffers for the estimator's
// inner loop, where every hypothesis needs an index list over all points.
package mempool

import (
	"sync"
)

var (
	intPools     sync.Map // key: size class (int), value: *sync.Pool
	float64Pools sync.Map // key: size class (int), value: *sync.Pool
)

const (
	minClass = 128
	step     = 1024
)

// sizeClass rounds n up to a bucket: 128 for small buffers, otherwise the
// next multiple of 1024.
func sizeClass(n int) int {
	if n <= minClass {
		return minClass
	}
	r := (n + step - 1) / step
	return r * step
}

// classOf returns the largest class a buffer of capacity c can serve, or 0.
func classOf(c int) int {
	switch {
	case c < minClass:
		return 0
	case c < step:
		return minClass
	default:
		return c / step * step
	}
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return pAny.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is stored
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	buf, ok := poolFor[T](pools, cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	cls := classOf(cap(buf))
	if cls == 0 {
		return
	}
	poolFor[T](pools, cls).Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetInts returns an []int of length n. Contents are not zeroed.
// Return it with PutInts when done.
func GetInts(n int) []int {
	return get[int](&intPools, n)
}

// PutInts returns a buffer to the pool. It is safe to pass a nil slice.
func PutInts(buf []int) {
	put(&intPools, buf)
}

// GetFloat64 returns a []float64 of length n. Contents are not zeroed.
// Return it with PutFloat64 when done.
func GetFloat64(n int) []float64 {
	return get[float64](&float64Pools, n)
}

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) {
	put(&float64Pools, buf)
}
