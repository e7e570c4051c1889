// Package api
// Author: momentics@gmail.com
//
// Lock-free ring buffer for cross-goroutine producer/consumer.

package api

// Ring is a single-producer/single-consumer ring buffer contract.
// Enqueue is producer-only, Dequeue is consumer-only; the predicates
// may be consulted from either side.
type Ring[T any] interface {
	// Enqueue adds an item, returns false if full.
	Enqueue(item T) bool
	// Dequeue removes oldest item, returns false if empty.
	Dequeue() (T, bool)
	// IsEmpty reports whether there is nothing to dequeue.
	IsEmpty() bool
	// IsFull reports whether the next Enqueue would be refused.
	IsFull() bool
	// Len returns current number of items.
	Len() int
	// Cap returns the number of slots, one of which is never filled.
	Cap() int
}
