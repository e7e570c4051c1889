// File: internal/concurrency/ring.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer with single-writer head/tail cursors,
// padded to prevent false sharing.
// Implements api.Ring for cross-package consistency.

package concurrency

import (
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/tickpipe/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*RingBuffer[any])(nil)

// RingBuffer is a lock-free ring buffer for exactly one producer and one consumer.
//
// tail is stored only by the producer (Enqueue), head only by the consumer
// (Dequeue). One slot is sacrificed: head == tail means empty and
// tail+1 == head (mod size) means full, so no shared count is needed.
type RingBuffer[T any] struct {
	data []T
	size uint32
	mask uint32 // size-1 if size is a power of two, 0 otherwise
	_    cpu.CacheLinePad
	head atomic.Uint32
	_    cpu.CacheLinePad
	tail atomic.Uint32
	_    cpu.CacheLinePad
}

// NewRingBuffer allocates a ring buffer with size slots (size-1 usable).
// Any size >= 2 works; powers of two take the masking fast path.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 2 || uint64(size) > math.MaxUint32 {
		panic(fmt.Sprintf("ring size must be in [2, 2^32), got %d", size))
	}
	r := &RingBuffer[T]{
		data: make([]T, size),
		size: uint32(size),
	}
	if size&(size-1) == 0 {
		r.mask = uint32(size - 1)
	}
	return r
}

func (r *RingBuffer[T]) next(i uint32) uint32 {
	if r.mask != 0 {
		return (i + 1) & r.mask
	}
	i++
	if i == r.size {
		return 0
	}
	return i
}

// Enqueue adds item; returns false if full. Producer only.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	tail := r.tail.Load()
	next := r.next(tail)
	if next == r.head.Load() {
		return false
	}
	r.data[tail] = item
	r.tail.Store(next)
	return true
}

// Dequeue removes and returns item; ok false if empty. Consumer only.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	item := r.data[head]
	r.data[head] = zero
	r.head.Store(r.next(head))
	return item, true
}

// IsEmpty reports head == tail.
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

// IsFull reports (tail+1) mod size == head.
func (r *RingBuffer[T]) IsFull() bool {
	return r.next(r.tail.Load()) == r.head.Load()
}

// Len returns number of items currently in buffer.
// The value is a snapshot and may be stale by the time it is read.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((tail + r.size - head) % r.size)
}

// Cap returns the number of slots.
func (r *RingBuffer[T]) Cap() int {
	return int(r.size)
}

// Free returns the number of enqueues that would currently succeed.
func (r *RingBuffer[T]) Free() int {
	return int(r.size) - 1 - r.Len()
}
