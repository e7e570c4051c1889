// File: controller/controller.go
// Package controller implements the tick-driven adaptive drain of the ring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RateController runs once per tick on the tick goroutine. While the gate is
// armed it counts ticks and, every consumeEvery+modifier ticks, dequeues one
// record. Finding the ring empty at that moment is an underrun: the base
// period grows by one tick and the gate is disarmed until the producer fills
// the ring again. The base period never shrinks on its own.

package controller

import (
	"math"
	"strconv"
	"sync/atomic"

	"github.com/momentics/tickpipe/api"
)

// Outcome is the transition taken by a single Tick.
type Outcome uint8

const (
	Idle     Outcome = iota // gate disarmed, cycle untouched
	Waiting                 // armed, period not yet elapsed
	Consumed                // one record dequeued and reported
	Underrun                // ring empty when due; period lengthened, gate disarmed
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Consumed:
		return "consumed"
	case Underrun:
		return "underrun"
	default:
		return "unknown"
	}
}

// Formatter appends the textual form of a record to dst.
type Formatter[T any] func(dst []byte, v T) []byte

// Stats is a point-in-time view of controller counters.
type Stats struct {
	Ticks        uint64
	Consumed     uint64
	Underruns    uint64
	SinkErrors   uint64
	ConsumeEvery uint32
	Modifier     uint32
}

// Option customizes controller initialization.
type Option func(*options)

type options struct {
	consumeEvery uint32
	modifier     uint32
}

// WithConsumeEvery sets the initial base period in ticks (default 1, which
// lets the controller auto-calibrate from the fastest rate).
func WithConsumeEvery(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.consumeEvery = n
		}
	}
}

// WithModifier sets the initial additive slowdown.
func WithModifier(n uint32) Option {
	return func(o *options) { o.modifier = n }
}

// RateController drains an api.Ring at an adaptive tick period.
type RateController[T any] struct {
	ring   api.Ring[T]
	gate   *Gate
	sink   api.Sink
	format Formatter[T]

	cycle uint32 // tick goroutine only
	buf   []byte // tick goroutine only

	// consumeEvery is stored only by Tick; atomic so probes may read it.
	consumeEvery atomic.Uint32
	modifier     atomic.Uint32

	ticks      atomic.Uint64
	consumed   atomic.Uint64
	underruns  atomic.Uint64
	sinkErrors atomic.Uint64
}

// New builds a controller over ring, gated by gate, reporting to sink.
func New[T any](ring api.Ring[T], gate *Gate, sink api.Sink, format Formatter[T], opts ...Option) *RateController[T] {
	o := options{consumeEvery: 1}
	for _, opt := range opts {
		opt(&o)
	}
	c := &RateController[T]{
		ring:   ring,
		gate:   gate,
		sink:   sink,
		format: format,
		buf:    make([]byte, 0, 128),
	}
	c.consumeEvery.Store(o.consumeEvery)
	c.modifier.Store(o.modifier)
	return c
}

// Tick advances the state machine by one timer period.
// Must only be called from the tick goroutine.
func (c *RateController[T]) Tick() Outcome {
	c.ticks.Add(1)
	if !c.gate.Armed() {
		return Idle
	}

	c.cycle++
	every := c.consumeEvery.Load()
	period := addSat(every, c.modifier.Load())
	// >= so that lowering the modifier below the current cycle fires at once.
	if c.cycle < period {
		return Waiting
	}
	c.cycle = 0

	if item, ok := c.ring.Dequeue(); ok {
		c.consumed.Add(1)
		c.report(c.consumedLine(item, period))
		return Consumed
	}

	every = addSat(every, 1)
	c.consumeEvery.Store(every)
	c.gate.Disarm()
	c.underruns.Add(1)
	c.report(c.underrunLine(every))
	return Underrun
}

func (c *RateController[T]) consumedLine(item T, period uint32) []byte {
	b := append(c.buf[:0], "<<<<< Consumed: "...)
	b = c.format(b, item)
	b = append(b, " consuming every: "...)
	b = strconv.AppendUint(b, uint64(period), 10)
	return append(b, '\n')
}

func (c *RateController[T]) underrunLine(every uint32) []byte {
	b := append(c.buf[:0], "Queue is empty! Increased consume_every to: "...)
	b = strconv.AppendUint(b, uint64(every), 10)
	return append(b, '\n')
}

func (c *RateController[T]) report(line []byte) {
	c.buf = line[:0]
	if c.sink == nil {
		return
	}
	if err := c.sink.Transmit(line); err != nil {
		c.sinkErrors.Add(1)
	}
}

// Cycle returns ticks counted since the last drain attempt.
// Only meaningful when read from the tick goroutine.
func (c *RateController[T]) Cycle() uint32 { return c.cycle }

// ConsumeEvery returns the auto-calibrated base period.
func (c *RateController[T]) ConsumeEvery() uint32 { return c.consumeEvery.Load() }

// Modifier returns the external additive slowdown.
func (c *RateController[T]) Modifier() uint32 { return c.modifier.Load() }

// SetModifier replaces the external slowdown. Safe from any goroutine;
// the controller itself never changes it.
func (c *RateController[T]) SetModifier(n uint32) { c.modifier.Store(n) }

// Period returns the effective drain period in ticks.
func (c *RateController[T]) Period() uint32 {
	return addSat(c.consumeEvery.Load(), c.modifier.Load())
}

// addSat adds two periods, pinning at math.MaxUint32 instead of wrapping.
func addSat(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// Stats returns current counters.
func (c *RateController[T]) Stats() Stats {
	return Stats{
		Ticks:        c.ticks.Load(),
		Consumed:     c.consumed.Load(),
		Underruns:    c.underruns.Load(),
		SinkErrors:   c.sinkErrors.Load(),
		ConsumeEvery: c.consumeEvery.Load(),
		Modifier:     c.modifier.Load(),
	}
}
