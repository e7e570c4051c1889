// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake sink, port and tick source implementations for testing.

package fake

import (
	"sync"

	"github.com/momentics/tickpipe/api"
)

var _ api.Sink = (*Sink)(nil)

// Sink records every transmitted message as a separate string.
type Sink struct {
	mu   sync.Mutex
	msgs []string
	Err  error // returned from Transmit when set
}

// Transmit copies p into the log.
func (s *Sink) Transmit(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.msgs = append(s.msgs, string(p))
	return nil
}

// Messages returns a copy of everything transmitted so far.
func (s *Sink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Last returns the most recent message, or "" if none.
func (s *Sink) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return ""
	}
	return s.msgs[len(s.msgs)-1]
}
