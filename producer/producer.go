// File: producer/producer.go
// Package producer implements the main-context loop feeding the ring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The producer walks the whole RGB value space in odometer order. Whenever it
// finds the ring full it arms the consumer gate on every polling pass and
// spins until a slot frees up. After each enqueue it waits a random number of
// delay units to emulate code paths of varying cost.

package producer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/controller"
	"github.com/momentics/tickpipe/internal/concurrency"
	"github.com/momentics/tickpipe/record"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Stats is a snapshot of producer counters.
type Stats struct {
	Produced    uint64
	FullSpins   uint64
	Traversals  uint64
	TraceErrors uint64 // trace lines the sink failed to transmit
}

// Option customizes producer initialization.
type Option func(*Producer)

// WithEntropy replaces the delay source.
func WithEntropy(e api.Entropy) Option {
	return func(p *Producer) { p.entropy = e }
}

// WithSleeper replaces the wall-clock wait.
func WithSleeper(s Sleeper) Option {
	return func(p *Producer) { p.sleep = s }
}

// WithDelay sets the synthetic delay to Intn(maxUnits) * unit per record.
func WithDelay(maxUnits int, unit time.Duration) Option {
	return func(p *Producer) {
		p.maxDelay = maxUnits
		p.unit = unit
	}
}

// WithTrace emits a ">>>>> Produced" line to s for every record.
func WithTrace(s api.Sink) Option {
	return func(p *Producer) { p.trace = s }
}

// Producer is the single writer of the ring.
type Producer struct {
	ring     api.Ring[record.RGB]
	gate     *controller.Gate
	entropy  api.Entropy
	sleep    Sleeper
	trace    api.Sink
	maxDelay int
	unit     time.Duration

	odo  record.Odometer
	spin concurrency.Spinner
	buf  []byte

	produced   atomic.Uint64
	fullSpins  atomic.Uint64
	traversals atomic.Uint64
	traceErrs  atomic.Uint64
}

// New builds a producer. Defaults: delay in [0, 16) ms, fastrand entropy.
func New(ring api.Ring[record.RGB], gate *controller.Gate, opts ...Option) *Producer {
	p := &Producer{
		ring:     ring,
		gate:     gate,
		sleep:    sleepCtx,
		maxDelay: 16,
		unit:     time.Millisecond,
		buf:      make([]byte, 0, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.entropy == nil {
		p.entropy = NewFastRand(uint32(time.Now().UnixNano()))
	}
	return p
}

// Step produces exactly one record. It only fails when ctx ends while
// waiting for space or during the delay.
func (p *Producer) Step(ctx context.Context) error {
	rec := p.odo.Value()

	for p.ring.IsFull() {
		p.gate.Arm()
		p.fullSpins.Add(1)
		if err := ctx.Err(); err != nil {
			return err
		}
		p.spin.Spin()
	}
	p.spin.Reset()

	if !p.ring.Enqueue(rec) {
		return fmt.Errorf("producer: enqueue %v: %w", rec, api.ErrRingFull)
	}
	p.produced.Add(1)

	if p.trace != nil {
		b := append(p.buf[:0], ">>>>> Produced: "...)
		b = rec.AppendText(b)
		b = append(b, '\n')
		p.buf = b[:0]
		if err := p.trace.Transmit(b); err != nil {
			p.traceErrs.Add(1)
		}
	}

	if p.odo.Next() {
		p.traversals.Add(1)
	}

	if n := p.entropy.Intn(p.maxDelay); n > 0 && p.unit > 0 {
		return p.sleep(ctx, time.Duration(n)*p.unit)
	}
	return nil
}

// Run produces until ctx is cancelled, then returns nil.
func (p *Producer) Run(ctx context.Context) error {
	for {
		if err := p.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Next returns the record the next Step will enqueue.
func (p *Producer) Next() record.RGB { return p.odo.Value() }

// Stats returns current counters.
func (p *Producer) Stats() Stats {
	return Stats{
		Produced:    p.produced.Load(),
		FullSpins:   p.fullSpins.Load(),
		Traversals:  p.traversals.Load(),
		TraceErrors: p.traceErrs.Load(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
