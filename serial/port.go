// File: serial/port.go
// Package serial emulates a UART transmitter on top of an io.Writer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bytes enter a small transmit FIFO (a single data register by default) and
// are shifted out to the writer by a dedicated goroutine at baud/10 bytes per
// second (8N1 framing). WriteByte busy-waits while the FIFO is full, the same
// way firmware polls the data-register-empty flag.

package serial

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/time/rate"

	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/internal/concurrency"
)

// bitsPerFrame is start + 8 data + stop.
const bitsPerFrame = 10

var _ api.Port = (*Port)(nil)

// Option customizes a Port.
type Option func(*Port)

// WithFIFODepth sets the number of bytes the transmitter can hold.
func WithFIFODepth(n int) Option {
	return func(p *Port) {
		if n > 0 {
			p.depth = n
		}
	}
}

// Port is a paced, single-writer byte channel.
type Port struct {
	out   io.Writer
	depth int

	mu      sync.Mutex
	fifo    *queue.Queue
	limiter *rate.Limiter
	started bool
	closed  bool
	err     error

	wake chan struct{}
	done chan struct{}
	one  [1]byte // shifter goroutine only
}

// New creates a port writing to out. Call Init before writing.
func New(out io.Writer, opts ...Option) *Port {
	p := &Port{
		out:   out,
		depth: 1,
		fifo:  queue.New(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init sets the line rate and starts the shifter on first use.
// Calling it again reprograms the rate.
func (p *Port) Init(baud int) error {
	if baud < 0 {
		return fmt.Errorf("serial: baud %d: %w", baud, api.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPortClosed
	}
	if baud == 0 {
		p.limiter = nil
	} else {
		p.limiter = rate.NewLimiter(rate.Limit(float64(baud)/bitsPerFrame), 1)
	}
	if !p.started {
		p.started = true
		go p.shift()
	}
	return nil
}

// WriteByte queues c, spinning while the FIFO is full.
func (p *Port) WriteByte(c byte) error {
	var sp concurrency.Spinner
	for {
		p.mu.Lock()
		switch {
		case p.closed:
			p.mu.Unlock()
			return api.ErrPortClosed
		case !p.started:
			p.mu.Unlock()
			return api.ErrPortNotInitialized
		case p.err != nil:
			err := p.err
			p.mu.Unlock()
			return err
		}
		if p.fifo.Length() < p.depth {
			p.fifo.Add(c)
			p.mu.Unlock()
			p.signal()
			return nil
		}
		p.mu.Unlock()
		sp.Spin()
	}
}

// Pending returns the number of bytes not yet shifted out.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fifo.Length()
}

// Close refuses further writes, drains the FIFO and stops the shifter.
// It returns the first writer error, if any.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	if started {
		p.signal()
		<-p.done
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Port) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Port) shift() {
	defer close(p.done)
	ctx := context.Background()
	for {
		p.mu.Lock()
		if p.fifo.Length() == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			<-p.wake
			continue
		}
		p.one[0] = p.fifo.Peek().(byte)
		lim := p.limiter
		p.mu.Unlock()

		if lim != nil {
			_ = lim.Wait(ctx)
		}
		_, err := p.out.Write(p.one[:])

		p.mu.Lock()
		p.fifo.Remove()
		if err != nil && p.err == nil {
			p.err = fmt.Errorf("serial: write: %w", err)
		}
		p.mu.Unlock()
	}
}
