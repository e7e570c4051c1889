// File: cmd/tickpipe/root_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/tickpipe/config"
)

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickpipe.yaml")
	doc := "pipeline:\n  capacity: 64\n  modifier: 2\nserial:\n  baud: 9600\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	flagged := config.Default()
	fv := &flagValues{}
	cmd := newCommand(flagged, fv)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--modifier", "5", "--tick", "2ms"}))
	require.Equal(t, path, fv.configPath)
	assert.Equal(t, uint32(5), flagged.Pipeline.Modifier)

	cfg, err := resolveConfig(cmd.Flags(), fv, flagged)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Pipeline.Capacity, "file value kept")
	assert.Equal(t, 9600, cfg.Serial.Baud, "file value kept")
	assert.Equal(t, uint32(5), cfg.Pipeline.Modifier, "explicit flag wins")
	assert.Equal(t, 2*time.Millisecond, cfg.Pipeline.Tick, "explicit flag wins")
}

func TestResolveConfig_InvalidFlag(t *testing.T) {
	flagged := config.Default()
	fv := &flagValues{}
	cmd := newCommand(flagged, fv)
	require.NoError(t, cmd.Flags().Parse([]string{"--capacity", "1"}))
	_, err := resolveConfig(cmd.Flags(), fv, flagged)
	assert.Error(t, err)
}

func TestOpenOutput(t *testing.T) {
	w, err := openOutput("stdout")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "line.log")
	w, err = openOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(got))
}

func TestSetupLogging_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, setupLogging("loud"))
}
