// File: api/ticker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Periodic tick source contract for the consumer side.

package api

import (
	"context"
	"time"
)

// TickSource fires a callback at a fixed, configured period.
// fire runs to completion before the next invocation; ticks are never nested.
type TickSource interface {
	Configure(period time.Duration) error
	Run(ctx context.Context, fire func()) error
}

// Entropy yields a bounded integer in [0, k).
type Entropy interface {
	Intn(k int) int
}
