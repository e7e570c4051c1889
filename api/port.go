// File: api/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Byte-oriented output channel and the serializing sink built on top of it.

package api

import "io"

// Port is a byte-at-a-time output channel, e.g. a serial transmitter.
type Port interface {
	io.ByteWriter

	// Init configures the line rate. baud == 0 disables pacing.
	Init(baud int) error

	// Close flushes pending bytes and releases the channel.
	Close() error
}

// Sink emits whole messages. Concurrent Transmit calls never interleave.
type Sink interface {
	Transmit(p []byte) error
}
