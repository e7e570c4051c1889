// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/momentics/tickpipe/api"
)

var _ api.TickSource = (*Manual)(nil)

// Manual is a tick source driven by the test through Fire.
type Manual struct {
	period atomic.Int64
	fireCh chan chan struct{}
	fired  atomic.Uint64
}

// NewManual creates an idle manual tick source.
func NewManual() *Manual {
	return &Manual{fireCh: make(chan chan struct{})}
}

func (m *Manual) Configure(period time.Duration) error {
	if period <= 0 {
		return api.ErrInvalidArgument
	}
	m.period.Store(int64(period))
	return nil
}

// Period returns the configured period.
func (m *Manual) Period() time.Duration { return time.Duration(m.period.Load()) }

// Run serves Fire requests until ctx is done.
func (m *Manual) Run(ctx context.Context, fire func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case done := <-m.fireCh:
			fire()
			m.fired.Add(1)
			close(done)
		}
	}
}

// Fire delivers one tick and waits until the handler returned.
// It reports false if ctx ended first.
func (m *Manual) Fire(ctx context.Context) bool {
	done := make(chan struct{})
	select {
	case m.fireCh <- done:
	case <-ctx.Done():
		return false
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Fired returns the number of ticks delivered.
func (m *Manual) Fired() uint64 { return m.fired.Load() }

var _ api.Entropy = Fixed(0)

// Fixed is an entropy source that always yields the same value, clamped to [0, k).
type Fixed int

func (f Fixed) Intn(k int) int {
	if k <= 0 {
		return 0
	}
	if int(f) >= k {
		return k - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}
