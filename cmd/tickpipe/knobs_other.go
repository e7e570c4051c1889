//go:build !unix

// File: cmd/tickpipe/knobs_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"

	"github.com/momentics/tickpipe/facade"
)

// watchKnobs is a no-op where user signals are unavailable.
func watchKnobs(ctx context.Context, _ *facade.TickPipe) {
	<-ctx.Done()
}
