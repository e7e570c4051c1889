package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/tickpipe/api"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 128, cfg.Pipeline.Capacity)
	assert.Equal(t, uint32(1), cfg.Pipeline.ConsumeEvery)
	assert.Equal(t, 115200, cfg.Serial.Baud)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickpipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  capacity: 4
  tick: 2ms
  modifier: 10
serial:
  baud: 0
logs:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.Capacity)
	assert.Equal(t, 2*time.Millisecond, cfg.Pipeline.Tick)
	assert.Equal(t, uint32(10), cfg.Pipeline.Modifier)
	assert.Equal(t, 0, cfg.Serial.Baud)
	assert.Equal(t, "debug", cfg.Logs.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, 16, cfg.Pipeline.MaxDelay)
	assert.Equal(t, "stdout", cfg.Serial.Output)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  capacity: 1\n"), 0o600))

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, api.ErrInvalidArgument)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "pipeline.capacity", apiErr.Context["field"])
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
