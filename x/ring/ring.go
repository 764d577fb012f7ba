// Package ring provides a fixed-capacity, lock-free single-producer /
// single-consumer ring. The producer may run in interrupt context.
package ring

import "sync/atomic"

// Ring is a single-producer, single-consumer FIFO of T.
type Ring[T any] struct {
	buf  []T
	mask uint32
	lim  uint32        // logical capacity; may be smaller than len(buf)
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New allocates a ring holding at most capacity elements (>= 1).
// Storage is rounded up to a power of two so indices can wrap freely.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("ring: capacity must be >= 1")
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint32(size - 1),
		lim:  uint32(capacity),
	}
}

func (r *Ring[T]) Cap() int { return int(r.lim) }

func (r *Ring[T]) Len() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Producer side

// TryPush appends v. It returns false if the ring already holds Cap elements.
func (r *Ring[T]) TryPush(v T) bool {
	wr := r.wr.Load()
	rd := r.rd.Load() // acquire
	if wr-rd >= r.lim {
		return false
	}
	r.buf[wr&r.mask] = v
	r.wr.Store(wr + 1) // release
	return true
}

// Consumer side

// TryPop removes the oldest element.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if wr == rd {
		return zero, false
	}
	v := r.buf[rd&r.mask]
	r.buf[rd&r.mask] = zero
	r.rd.Store(rd + 1) // release
	return v, true
}
