// File: cmd/tickpipe/main.go
// Package main
// Runs the tick-driven producer/consumer pipeline, writing status lines to a
// paced serial port emulation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("[tickpipe] exited with error")
		os.Exit(1)
	}
}
