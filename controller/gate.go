// File: controller/gate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package controller

import "sync/atomic"

// Gate is the consumer enable flag. The producer arms it while it observes a
// full ring, the controller disarms it on underrun. Both stores are
// idempotent level signals.
type Gate struct {
	armed atomic.Bool
}

// Arm enables draining. Producer side.
func (g *Gate) Arm() { g.armed.Store(true) }

// Disarm stops draining until the next Arm. Consumer side.
func (g *Gate) Disarm() { g.armed.Store(false) }

// Armed reports the current level.
func (g *Gate) Armed() bool { return g.armed.Load() }
