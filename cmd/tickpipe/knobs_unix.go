//go:build unix

// File: cmd/tickpipe/knobs_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/momentics/tickpipe/control"
	"github.com/momentics/tickpipe/facade"
)

// watchKnobs maps signals onto the manual slowdown: SIGUSR1 adds a tick,
// SIGUSR2 removes one, SIGHUP re-applies the stored settings.
func watchKnobs(ctx context.Context, pipe *facade.TickPipe) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, unix.SIGUSR1, unix.SIGUSR2, unix.SIGHUP)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			var err error
			switch sig {
			case unix.SIGUSR1:
				err = pipe.AdjustModifier(1)
			case unix.SIGUSR2:
				err = pipe.AdjustModifier(-1)
			case unix.SIGHUP:
				control.TriggerHotReload()
			}
			if err != nil {
				log.Warn().Err(err).Str("signal", sig.String()).Msg("[knob] adjust failed")
			}
		}
	}
}
