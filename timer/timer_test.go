package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/tickpipe/api"
)

func TestPeriodFromPrescaler(t *testing.T) {
	d, err := PeriodFromPrescaler(18_432_000, 256, 8)
	require.NoError(t, err)
	assert.InDelta(t, 3.5555*float64(time.Millisecond), float64(d), float64(time.Microsecond))

	_, err = PeriodFromPrescaler(0, 256, 8)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestPeriodFromPrescaler_WideCounters(t *testing.T) {
	// 1024 * 2^32 cycles at 16 MHz is 274877.906944 s.
	d, err := PeriodFromPrescaler(16_000_000, 1024, 32)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(274_877_906_944_000), d)

	_, err = PeriodFromPrescaler(1, 1<<40, 32)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = PeriodFromPrescaler(1000, 1<<20, 32)
	require.ErrorIs(t, err, api.ErrInvalidArgument, "fits in 128 bits but not in a Duration")
}

func TestPeriodic_RejectsNonPositive(t *testing.T) {
	_, err := NewPeriodic(0)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestPeriodic_FiresSeriallyUntilCancel(t *testing.T) {
	p, err := NewPeriodic(time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var inFlight, overlaps, calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func() {
			if inFlight.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(2 * time.Millisecond) // longer than the period
			calls.Add(1)
			inFlight.Add(-1)
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, overlaps.Load())
	assert.Greater(t, calls.Load(), int32(3))
	assert.Equal(t, uint64(calls.Load()), p.Fired())
}

func TestPeriodic_ConfigureWhileRunning(t *testing.T) {
	p, err := NewPeriodic(time.Millisecond)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var once atomic.Bool
	go func() {
		_ = p.Run(ctx, func() {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
		})
	}()
	<-started
	require.ErrorIs(t, p.Configure(time.Second), api.ErrAlreadyRunning)
	require.ErrorIs(t, p.Run(ctx, func() {}), api.ErrAlreadyRunning)
}
