// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"io"

	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/control"
)

var _ api.Control = (*ControlAdapter)(nil)

type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

// Stats merges metrics with probe output; probe keys get a "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

// OnReload registers fn for config-store changes. fn runs on the goroutine
// that changed the config, before SetConfig or UpdateConfig returns.
// Process-wide triggers are wired separately with control.RegisterReloadHook.
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

// UpdateConfig performs an atomic read-modify-write of the config.
func (c *ControlAdapter) UpdateConfig(fn func(cfg map[string]any) error) error {
	return c.config.Update(fn)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// WritePrometheus exposes numeric metrics for scraping.
func (c *ControlAdapter) WritePrometheus(w io.Writer) {
	c.metrics.WritePrometheus(w)
}
