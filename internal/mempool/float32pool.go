// Package mempool pools []float32 tensor buffers. Every frame builds
// several NCHW tensors of similar sizes; pooling them keeps the hot
// recognition path from churning the allocator.
package mempool

import (
	"sync"
)

var float32Pools sync.Map // size class (int) -> *sync.Pool

// sizeClass rounds n up to a 1 KiB-element multiple so buffers of
// nearby sizes share a pool.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return ((n + step - 1) / step) * step
}

// GetFloat32 retrieves a buffer with length n from the pool. The
// caller must hand it back via PutFloat32.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	pool, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]float32, n)
	}
	buf, ok := pool.Get().([]float32)
	if !ok || cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// PutFloat32 returns a buffer to its pool. Nil is a no-op.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cap(buf) < cls {
		return
	}
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	if pool, ok := pAny.(*sync.Pool); ok {
		pool.Put(buf[:cap(buf)]) //nolint:staticcheck // slice header is intended
	}
}
