// File: sink/sink.go
// Package sink serializes whole messages onto a byte-oriented port.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Status lines are emitted from both the producer and the tick goroutine.
// AtomicSink holds its lock for the duration of a single Transmit so that the
// bytes of two messages are never interleaved on the port.

package sink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/tickpipe/api"
)

var _ api.Sink = (*AtomicSink)(nil)

// AtomicSink writes messages byte by byte to an api.Port as indivisible units.
type AtomicSink struct {
	mu   sync.Mutex
	port api.Port

	messages atomic.Uint64
	bytes    atomic.Uint64
}

// New wraps port.
func New(port api.Port) *AtomicSink {
	return &AtomicSink{port: port}
}

// Transmit writes p while holding exclusive access to the port. p is not
// retained after return. A port error aborts the message.
func (s *AtomicSink) Transmit(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range p {
		if err := s.port.WriteByte(c); err != nil {
			s.bytes.Add(uint64(i))
			return fmt.Errorf("transmit byte %d of %d: %w", i, len(p), err)
		}
	}
	s.bytes.Add(uint64(len(p)))
	s.messages.Add(1)
	return nil
}

// TransmitString is Transmit for string literals.
func (s *AtomicSink) TransmitString(msg string) error {
	return s.Transmit([]byte(msg))
}

// Messages returns the number of fully transmitted messages.
func (s *AtomicSink) Messages() uint64 { return s.messages.Load() }

// Bytes returns the number of bytes handed to the port.
func (s *AtomicSink) Bytes() uint64 { return s.bytes.Load() }
