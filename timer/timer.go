// File: timer/timer.go
// Package timer provides the periodic tick source that drives the consumer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package timer

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/tickpipe/api"
)

var _ api.TickSource = (*Periodic)(nil)

// Periodic fires a handler on a time.Ticker. The handler runs on the Run
// goroutine, so invocations never overlap; ticks that elapse while it is
// still running collapse into one pending tick, like an interrupt flag.
type Periodic struct {
	mu      sync.Mutex
	period  time.Duration
	running bool

	fired atomic.Uint64
}

// NewPeriodic creates a tick source with the given period.
func NewPeriodic(period time.Duration) (*Periodic, error) {
	t := &Periodic{}
	if err := t.Configure(period); err != nil {
		return nil, err
	}
	return t, nil
}

// Configure sets the tick period. It must be called before Run.
func (t *Periodic) Configure(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("timer: period %v: %w", period, api.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("timer: configure while running: %w", api.ErrAlreadyRunning)
	}
	t.period = period
	return nil
}

// Period returns the configured period.
func (t *Periodic) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Run fires until ctx is done. It returns nil on cancellation.
func (t *Periodic) Run(ctx context.Context, fire func()) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return api.ErrAlreadyRunning
	}
	if t.period <= 0 {
		t.mu.Unlock()
		return fmt.Errorf("timer: not configured: %w", api.ErrInvalidArgument)
	}
	t.running = true
	ticker := time.NewTicker(t.period)
	t.mu.Unlock()

	defer func() {
		ticker.Stop()
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fire()
			t.fired.Add(1)
		}
	}
}

// Fired returns the number of delivered ticks.
func (t *Periodic) Fired() uint64 { return t.fired.Load() }

// PeriodFromPrescaler returns the overflow period of a hardware counter of
// counterBits width clocked at clockHz/prescaler. An 8-bit timer at
// 18.432 MHz with a /256 prescaler overflows every ~3.556 ms.
func PeriodFromPrescaler(clockHz uint64, prescaler uint64, counterBits uint) (time.Duration, error) {
	if clockHz == 0 || prescaler == 0 || counterBits == 0 || counterBits > 32 {
		return 0, fmt.Errorf("timer: clock %d prescaler %d bits %d: %w",
			clockHz, prescaler, counterBits, api.ErrInvalidArgument)
	}
	// ns = prescaler * 2^bits * 1e9 / clockHz, carried in 128 bits.
	hi, lo := bits.Mul64(prescaler, uint64(1)<<counterBits)
	h1, l1 := bits.Mul64(lo, uint64(time.Second))
	h2, l2 := bits.Mul64(hi, uint64(time.Second))
	h, carry := bits.Add64(h1, l2, 0)
	if h2 != 0 || carry != 0 || h >= clockHz {
		return 0, errPeriodOverflow(clockHz, prescaler, counterBits)
	}
	ns, _ := bits.Div64(h, l1, clockHz)
	if ns > math.MaxInt64 {
		return 0, errPeriodOverflow(clockHz, prescaler, counterBits)
	}
	return time.Duration(ns), nil
}

func errPeriodOverflow(clockHz, prescaler uint64, counterBits uint) error {
	return fmt.Errorf("timer: clock %d prescaler %d bits %d overflows time.Duration: %w",
		clockHz, prescaler, counterBits, api.ErrInvalidArgument)
}
