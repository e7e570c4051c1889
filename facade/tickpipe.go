// File: facade/tickpipe.go
// Unified facade layer for tickpipe.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the TickPipe struct, which aggregates the pipeline behind
// a single facade: the SPSC ring, the consumer gate, the rate controller, the
// atomic sink over a serial port, the tick source, the producer and the
// control plane. The facade exposes methods to run and shut down the
// pipeline, adjust the manual slowdown and read runtime statistics.

package facade

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/tickpipe/adapters"
	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/config"
	"github.com/momentics/tickpipe/controller"
	"github.com/momentics/tickpipe/internal/concurrency"
	"github.com/momentics/tickpipe/producer"
	"github.com/momentics/tickpipe/record"
	"github.com/momentics/tickpipe/serial"
	"github.com/momentics/tickpipe/sink"
	"github.com/momentics/tickpipe/timer"
)

// Banner is transmitted once before the pipeline starts.
const Banner = "Producer/Consumer Example\n\n"

// ModifierKey is the control-plane key holding the manual slowdown in ticks.
const ModifierKey = "consume_every_modifier"

// Option customizes facade initialization.
type Option func(*TickPipe)

// WithPort replaces the serial port.
func WithPort(p api.Port) Option {
	return func(t *TickPipe) { t.port = p }
}

// WithOutput sets the writer behind the default serial port.
func WithOutput(w io.Writer) Option {
	return func(t *TickPipe) { t.out = w }
}

// WithTickSource replaces the periodic timer.
func WithTickSource(ts api.TickSource) Option {
	return func(t *TickPipe) { t.ticks = ts }
}

// WithEntropy replaces the producer delay source.
func WithEntropy(e api.Entropy) Option {
	return func(t *TickPipe) { t.entropy = e }
}

// WithSleeper replaces the producer wall-clock delay.
func WithSleeper(s producer.Sleeper) Option {
	return func(t *TickPipe) { t.sleeper = s }
}

// Stats is a combined snapshot of the pipeline.
type Stats struct {
	Produced        uint64
	Consumed        uint64
	Underruns       uint64
	Ticks           uint64
	FullSpins       uint64
	SinkErrors      uint64
	TraceErrors     uint64
	ConsumeEvery    uint32
	Modifier        uint32
	RingLen         int
	ConsumerEnabled bool
}

// TickPipe is the main facade type.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type TickPipe struct {
	cfg *config.Config

	ring  *concurrency.RingBuffer[record.RGB]
	gate  *controller.Gate
	ctrl  *controller.RateController[record.RGB]
	sink  *sink.AtomicSink
	port  api.Port
	ticks api.TickSource
	prod  *producer.Producer

	control *adapters.ControlAdapter

	out     io.Writer
	entropy api.Entropy
	sleeper producer.Sleeper

	reloadMu sync.Mutex
	mu       sync.Mutex
	running  bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*TickPipe)(nil)

// New constructs a TickPipe. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) (*TickPipe, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &TickPipe{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	pc := cfg.Pipeline

	if t.port == nil {
		out := t.out
		if out == nil {
			out = os.Stdout
		}
		t.port = serial.New(out, serial.WithFIFODepth(cfg.Serial.FIFO))
	}
	if t.ticks == nil {
		p, err := timer.NewPeriodic(pc.Tick)
		if err != nil {
			return nil, err
		}
		t.ticks = p
	} else if err := t.ticks.Configure(pc.Tick); err != nil {
		return nil, fmt.Errorf("configure tick source: %w", err)
	}

	t.ring = concurrency.NewRingBuffer[record.RGB](pc.Capacity)
	t.gate = &controller.Gate{}
	t.sink = sink.New(t.port)
	t.ctrl = controller.New(t.ring, t.gate, t.sink, formatRGB,
		controller.WithConsumeEvery(pc.ConsumeEvery),
		controller.WithModifier(pc.Modifier),
	)

	if t.entropy == nil {
		seed := pc.Seed
		if seed == 0 {
			seed = uint32(time.Now().UnixNano())
		}
		t.entropy = producer.NewFastRand(seed)
	}
	popts := []producer.Option{
		producer.WithEntropy(t.entropy),
		producer.WithDelay(pc.MaxDelay, pc.DelayUnit),
	}
	if t.sleeper != nil {
		popts = append(popts, producer.WithSleeper(t.sleeper))
	}
	if pc.TraceProduced {
		popts = append(popts, producer.WithTrace(t.sink))
	}
	t.prod = producer.New(t.ring, t.gate, popts...)

	t.control = adapters.NewControlAdapter()
	_ = t.control.SetConfig(map[string]any{ModifierKey: pc.Modifier})
	t.control.OnReload(t.applyReload)
	t.registerProbes()
	return t, nil
}

func formatRGB(dst []byte, v record.RGB) []byte { return v.AppendText(dst) }

// Run initializes the port, sends the banner and drives the tick and
// producer goroutines until ctx is cancelled. It returns nil on cancellation.
func (t *TickPipe) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return api.ErrAlreadyRunning
	}
	t.running = true
	t.mu.Unlock()

	if err := t.port.Init(t.cfg.Serial.Baud); err != nil {
		t.setRunning(false)
		return fmt.Errorf("init port: %w", err)
	}
	if err := t.sink.TransmitString(Banner); err != nil {
		t.setRunning(false)
		return fmt.Errorf("transmit banner: %w", err)
	}

	pc := t.cfg.Pipeline
	log.Info().
		Int("capacity", pc.Capacity).
		Dur("tick", pc.Tick).
		Uint32("consumeEvery", t.ctrl.ConsumeEvery()).
		Uint32("modifier", t.ctrl.Modifier()).
		Int("baud", t.cfg.Serial.Baud).
		Msg("[tickpipe] starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.runConsumer(gctx) })
	g.Go(func() error { return t.runProducer(gctx) })
	if pc.StatsInterval > 0 {
		g.Go(func() error { return t.runStats(gctx) })
	}
	err := g.Wait()

	t.publishStats()
	log.Info().Msg("[tickpipe] stopped")
	return err
}

func (t *TickPipe) setRunning(v bool) {
	t.mu.Lock()
	t.running = v
	t.mu.Unlock()
}

// Shutdown flushes and closes the port. Call after Run has returned.
func (t *TickPipe) Shutdown() error {
	return t.port.Close()
}

func (t *TickPipe) runConsumer(ctx context.Context) error {
	pin := adapters.NewAffinityAdapter()
	if err := pin.Pin(t.cfg.Affinity.ConsumerCPU); err != nil {
		log.Warn().Err(err).Int("cpu", t.cfg.Affinity.ConsumerCPU).Msg("[tickpipe] consumer not pinned")
	}
	defer pin.Unpin()
	return t.ticks.Run(ctx, t.tick)
}

func (t *TickPipe) tick() {
	if t.ctrl.Tick() == controller.Underrun {
		log.Debug().Uint32("consumeEvery", t.ctrl.ConsumeEvery()).Msg("[controller] underrun")
	}
}

func (t *TickPipe) runProducer(ctx context.Context) error {
	pin := adapters.NewAffinityAdapter()
	if err := pin.Pin(t.cfg.Affinity.ProducerCPU); err != nil {
		log.Warn().Err(err).Int("cpu", t.cfg.Affinity.ProducerCPU).Msg("[tickpipe] producer not pinned")
	}
	defer pin.Unpin()
	if err := t.prod.Run(ctx); err != nil {
		return fmt.Errorf("producer: %w", err)
	}
	return nil
}

// runStats periodically publishes counters and logs a summary line.
func (t *TickPipe) runStats(ctx context.Context) error {
	tk := time.NewTicker(t.cfg.Pipeline.StatsInterval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			st := t.publishStats()
			log.Info().
				Uint64("produced", st.Produced).
				Uint64("consumed", st.Consumed).
				Uint64("underruns", st.Underruns).
				Uint32("period", st.ConsumeEvery+st.Modifier).
				Int("ringLen", st.RingLen).
				Msg("[tickpipe] stats")
		}
	}
}

func (t *TickPipe) publishStats() Stats {
	st := t.Stats()
	t.control.SetMetric("producer.produced", st.Produced)
	t.control.SetMetric("producer.full_spins", st.FullSpins)
	t.control.SetMetric("consumer.consumed", st.Consumed)
	t.control.SetMetric("consumer.underruns", st.Underruns)
	t.control.SetMetric("consumer.ticks", st.Ticks)
	t.control.SetMetric("consumer.consume_every", st.ConsumeEvery)
	t.control.SetMetric("consumer.modifier", st.Modifier)
	t.control.SetMetric("consumer.enabled", st.ConsumerEnabled)
	t.control.SetMetric("sink.errors", st.SinkErrors)
	t.control.SetMetric("producer.trace_errors", st.TraceErrors)
	t.control.SetMetric("sink.bytes", t.sink.Bytes())
	t.control.SetMetric("ring.len", st.RingLen)
	return st
}

func (t *TickPipe) registerProbes() {
	t.control.RegisterDebugProbe("ring.len", func() any { return t.ring.Len() })
	t.control.RegisterDebugProbe("ring.free", func() any { return t.ring.Free() })
	t.control.RegisterDebugProbe("consumer.enabled", func() any { return t.gate.Armed() })
	t.control.RegisterDebugProbe("consume_every", func() any { return t.ctrl.ConsumeEvery() })
	t.control.RegisterDebugProbe("modifier", func() any { return t.ctrl.Modifier() })
	t.control.RegisterDebugProbe("period", func() any { return t.ctrl.Period() })
}

// applyReload copies the modifier from the config store into the controller.
// Reading under reloadMu makes the last applied value the latest stored one.
func (t *TickPipe) applyReload() {
	t.reloadMu.Lock()
	defer t.reloadMu.Unlock()
	v, ok := t.control.GetConfig()[ModifierKey]
	if !ok {
		return
	}
	n, err := toUint32(v)
	if err != nil {
		log.Warn().Err(err).Interface("value", v).Msg("[control] ignoring " + ModifierKey)
		return
	}
	if prev := t.ctrl.Modifier(); prev != n {
		t.ctrl.SetModifier(n)
		log.Info().Uint32("from", prev).Uint32("to", n).Msg("[control] " + ModifierKey + " reloaded")
	}
}

// SetModifier stores a new manual slowdown; it reaches the controller via hot reload.
func (t *TickPipe) SetModifier(n uint32) error {
	return t.control.SetConfig(map[string]any{ModifierKey: n})
}

// AdjustModifier shifts the stored manual slowdown by delta, clamping at
// zero and at math.MaxUint32. Concurrent adjustments all take effect.
func (t *TickPipe) AdjustModifier(delta int) error {
	return t.control.UpdateConfig(func(cfg map[string]any) error {
		cur, err := toUint32(cfg[ModifierKey])
		if err != nil {
			return fmt.Errorf("%s: %w", ModifierKey, err)
		}
		next := int64(cur) + int64(delta)
		switch {
		case next < 0:
			next = 0
		case next > math.MaxUint32:
			next = math.MaxUint32
		}
		cfg[ModifierKey] = uint32(next)
		return nil
	})
}

// Reload re-applies the stored settings to the running pipeline.
func (t *TickPipe) Reload() { t.applyReload() }

// Control returns the control plane.
func (t *TickPipe) Control() *adapters.ControlAdapter { return t.control }

// Stats returns a combined snapshot of producer, controller and ring.
func (t *TickPipe) Stats() Stats {
	cs := t.ctrl.Stats()
	ps := t.prod.Stats()
	return Stats{
		Produced:        ps.Produced,
		Consumed:        cs.Consumed,
		Underruns:       cs.Underruns,
		Ticks:           cs.Ticks,
		FullSpins:       ps.FullSpins,
		SinkErrors:      cs.SinkErrors,
		TraceErrors:     ps.TraceErrors,
		ConsumeEvery:    cs.ConsumeEvery,
		Modifier:        cs.Modifier,
		RingLen:         t.ring.Len(),
		ConsumerEnabled: t.gate.Armed(),
	}
}

func toUint32(v any) (uint32, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint32:
		return x, nil
	case uint64:
		if x > uint64(^uint32(0)) {
			return 0, fmt.Errorf("%d out of range: %w", x, api.ErrInvalidArgument)
		}
		return uint32(x), nil
	case float64:
		n = int64(x)
	case string:
		u, err := strconv.ParseUint(x, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", x, api.ErrInvalidArgument)
		}
		return uint32(u), nil
	default:
		return 0, fmt.Errorf("unsupported type %T: %w", v, api.ErrInvalidArgument)
	}
	if n < 0 || n > int64(^uint32(0)) {
		return 0, fmt.Errorf("%d out of range: %w", n, api.ErrInvalidArgument)
	}
	return uint32(n), nil
}
