package facade_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/config"
	"github.com/momentics/tickpipe/facade"
	"github.com/momentics/tickpipe/fake"
	"github.com/momentics/tickpipe/record"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Pipeline.Capacity = 4
	cfg.Pipeline.Tick = time.Millisecond
	cfg.Pipeline.StatsInterval = 0
	cfg.Serial.Baud = 0
	return cfg
}

type harness struct {
	pipe   *facade.TickPipe
	port   *fake.Port
	ticks  *fake.Manual
	ctx    context.Context
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{port: &fake.Port{}, ticks: fake.NewManual(), done: make(chan error, 1)}
	var err error
	h.pipe, err = facade.New(cfg,
		facade.WithPort(h.port),
		facade.WithTickSource(h.ticks),
		facade.WithSleeper(noSleep),
		facade.WithEntropy(fake.Fixed(0)),
	)
	require.NoError(t, err)
	h.ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.done <- h.pipe.Run(h.ctx) }()
	t.Cleanup(func() {
		h.cancel()
		<-h.done
	})
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	require.NoError(t, <-h.done)
	h.done <- nil // satisfy cleanup
	require.NoError(t, h.pipe.Shutdown())
}

func TestTickPipe_DrainsInOrderOverThePort(t *testing.T) {
	h := start(t, testConfig())

	require.Eventually(t, func() bool { return h.pipe.Stats().ConsumerEnabled }, time.Second, time.Millisecond)
	assert.Equal(t, 3, h.pipe.Stats().RingLen, "capacity 4 holds three records")

	const drains = 50
	for h.pipe.Stats().Consumed < drains {
		for h.pipe.Stats().RingLen < 3 {
			runtime.Gosched()
		}
		require.True(t, h.ticks.Fire(h.ctx))
	}
	h.stop(t)

	out := string(h.port.Bytes())
	require.True(t, strings.HasPrefix(out, facade.Banner))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, facade.Banner), "\n"), "\n")
	require.Len(t, lines, drains)
	for i, l := range lines {
		want := fmt.Sprintf("<<<<< Consumed: %v consuming every: 1", record.RGB{B: uint8(i)})
		require.Equal(t, want, l)
	}

	baud, inited := h.port.Baud()
	assert.True(t, inited)
	assert.Equal(t, 0, baud)
	assert.Equal(t, time.Millisecond, h.ticks.Period())
}

func TestTickPipe_ModifierHotReload(t *testing.T) {
	h := start(t, testConfig())

	require.NoError(t, h.pipe.SetModifier(5))
	require.Eventually(t, func() bool { return h.pipe.Stats().Modifier == 5 }, time.Second, time.Millisecond)

	require.NoError(t, h.pipe.AdjustModifier(-10))
	require.Eventually(t, func() bool { return h.pipe.Stats().Modifier == 0 }, time.Second, time.Millisecond)

	require.NoError(t, h.pipe.Control().SetConfig(map[string]any{facade.ModifierKey: "7"}))
	require.Eventually(t, func() bool { return h.pipe.Stats().Modifier == 7 }, time.Second, time.Millisecond)

	// Garbage is ignored.
	require.NoError(t, h.pipe.Control().SetConfig(map[string]any{facade.ModifierKey: -3}))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint32(7), h.pipe.Stats().Modifier)
}

func TestTickPipe_AdjustModifierBackToBack(t *testing.T) {
	h := start(t, testConfig())

	for i := 0; i < 3; i++ {
		require.NoError(t, h.pipe.AdjustModifier(1))
	}
	assert.Equal(t, uint32(3), h.pipe.Stats().Modifier)

	const workers, presses = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < presses; i++ {
				assert.NoError(t, h.pipe.AdjustModifier(1))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(3+workers*presses), h.pipe.Stats().Modifier)
	assert.Equal(t, uint32(3+workers*presses), h.pipe.Control().GetConfig()[facade.ModifierKey])

	require.NoError(t, h.pipe.AdjustModifier(-1000))
	assert.Equal(t, uint32(0), h.pipe.Stats().Modifier)
}

func TestTickPipe_AdjustModifierClampsHigh(t *testing.T) {
	h := start(t, testConfig())
	require.NoError(t, h.pipe.SetModifier(math.MaxUint32-1))
	require.NoError(t, h.pipe.AdjustModifier(5))
	assert.Equal(t, uint32(math.MaxUint32), h.pipe.Stats().Modifier)
}

func TestTickPipe_ModifierDelaysDrain(t *testing.T) {
	cfg := testConfig()
	h := start(t, cfg)
	require.Eventually(t, func() bool { return h.pipe.Stats().ConsumerEnabled }, time.Second, time.Millisecond)

	// A huge slowdown lets the ring refill; dropping it makes the next tick due.
	require.NoError(t, h.pipe.SetModifier(1000))
	require.Eventually(t, func() bool { return h.pipe.Stats().Modifier == 1000 }, time.Second, time.Millisecond)
	require.True(t, h.ticks.Fire(h.ctx))
	assert.Zero(t, h.pipe.Stats().Consumed)

	stats := h.pipe.Control().Stats()
	assert.Equal(t, uint32(1000), stats["debug.modifier"])
	assert.Equal(t, uint32(1001), stats["debug.period"])
	assert.Equal(t, true, stats["debug.consumer.enabled"])
}

func TestTickPipe_RunTwice(t *testing.T) {
	h := start(t, testConfig())
	require.Eventually(t, func() bool { return h.pipe.Stats().Produced > 0 }, time.Second, time.Millisecond)
	require.ErrorIs(t, h.pipe.Run(h.ctx), api.ErrAlreadyRunning)
}

func TestTickPipe_RunRetriesAfterInitFailure(t *testing.T) {
	port := &fake.Port{InitErr: errors.New("no device")}
	pipe, err := facade.New(testConfig(),
		facade.WithPort(port),
		facade.WithTickSource(fake.NewManual()),
		facade.WithSleeper(noSleep),
		facade.WithEntropy(fake.Fixed(0)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.ErrorContains(t, pipe.Run(ctx), "no device")

	port.InitErr = nil
	done := make(chan error, 1)
	go func() { done <- pipe.Run(ctx) }()
	require.Eventually(t, func() bool { return pipe.Stats().Produced > 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, strings.HasPrefix(string(port.Bytes()), facade.Banner))
}

func TestTickPipe_PublishesMetricsOnStop(t *testing.T) {
	h := start(t, testConfig())
	require.Eventually(t, func() bool { return h.pipe.Stats().ConsumerEnabled }, time.Second, time.Millisecond)
	require.True(t, h.ticks.Fire(h.ctx))
	h.stop(t)

	stats := h.pipe.Control().Stats()
	assert.Equal(t, uint64(1), stats["consumer.consumed"])
	assert.Equal(t, uint64(1), stats["consumer.ticks"])

	var buf bytes.Buffer
	h.pipe.Control().WritePrometheus(&buf)
	assert.Contains(t, buf.String(), "tickpipe_consumer_consumed 1")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Capacity = 1
	_, err := facade.New(cfg)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

// Real timer, real serial port: the controller calibrates against a
// producer whose per-record cost varies.
func TestTickPipe_EndToEndRealTimer(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Capacity = 16
	cfg.Pipeline.MaxDelay = 4
	cfg.Pipeline.DelayUnit = 500 * time.Microsecond
	cfg.Pipeline.Seed = 1

	var out bytes.Buffer
	pipe, err := facade.New(cfg, facade.WithOutput(&out))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, pipe.Run(ctx))
	require.NoError(t, pipe.Shutdown())

	st := pipe.Stats()
	assert.Greater(t, st.Produced, uint64(0))
	assert.LessOrEqual(t, st.Consumed, st.Produced)
	assert.Equal(t, uint32(1)+uint32(st.Underruns), st.ConsumeEvery)
	assert.True(t, strings.HasPrefix(out.String(), facade.Banner))
}
