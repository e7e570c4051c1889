// File: internal/concurrency/spin.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adaptive relax for busy-wait loops.

package concurrency

import (
	"runtime"
	"time"
)

const (
	yieldSpins     = 64
	defaultMaxWait = time.Millisecond
)

// Spinner relaxes a polling loop: it yields the processor for the first
// passes, then sleeps with exponential growth capped at Max.
// The zero value is ready to use.
type Spinner struct {
	Max time.Duration

	spins   int
	backoff time.Duration
}

// Spin performs one relax step.
func (s *Spinner) Spin() {
	if s.spins < yieldSpins {
		s.spins++
		runtime.Gosched()
		return
	}
	if s.backoff == 0 {
		s.backoff = time.Microsecond
	}
	time.Sleep(s.backoff)
	limit := s.Max
	if limit <= 0 {
		limit = defaultMaxWait
	}
	if s.backoff *= 2; s.backoff > limit {
		s.backoff = limit
	}
}

// Reset returns the spinner to its initial fast-yield phase.
func (s *Spinner) Reset() {
	s.spins = 0
	s.backoff = 0
}
