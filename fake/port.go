// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"runtime"
	"sync"

	"github.com/momentics/tickpipe/api"
)

var _ api.Port = (*Port)(nil)

// Port captures written bytes. When Yield is set, every byte gives up the
// processor so that unsynchronized writers would visibly interleave.
type Port struct {
	Yield   bool
	InitErr error // returned from Init when set

	mu     sync.Mutex
	data   []byte
	baud   int
	inited bool
	closed bool
}

func (p *Port) Init(baud int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.InitErr != nil {
		return p.InitErr
	}
	p.baud = baud
	p.inited = true
	return nil
}

func (p *Port) WriteByte(c byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPortClosed
	}
	p.data = append(p.data, c)
	p.mu.Unlock()
	if p.Yield {
		runtime.Gosched()
	}
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Bytes returns a copy of everything written.
func (p *Port) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.data...)
}

// Baud returns the rate passed to Init and whether Init was called.
func (p *Port) Baud() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baud, p.inited
}
