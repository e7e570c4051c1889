// File: config/config.go
// Package config loads tickpipe settings from YAML.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/tickpipe/api"
)

// Config is the root document.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline"`
	Serial   Serial   `yaml:"serial"`
	Affinity Affinity `yaml:"affinity"`
	Logs     Logs     `yaml:"logs"`
	Metrics  Metrics  `yaml:"metrics"`
}

type Pipeline struct {
	Capacity      int           `yaml:"capacity"`       // Ring slots; one is never filled.
	Tick          time.Duration `yaml:"tick"`           // Consumer tick period.
	ConsumeEvery  uint32        `yaml:"consume_every"`  // Initial base period in ticks; 1 auto-calibrates.
	Modifier      uint32        `yaml:"modifier"`       // Additive manual slowdown in ticks.
	MaxDelay      int           `yaml:"max_delay"`      // Producer delay is drawn from [0, max_delay) units.
	DelayUnit     time.Duration `yaml:"delay_unit"`     // Length of one delay unit.
	Seed          uint32        `yaml:"seed"`           // Entropy seed; 0 picks one from the clock.
	TraceProduced bool          `yaml:"trace_produced"` // Emit a line per produced record.
	StatsInterval time.Duration `yaml:"stats_interval"` // Period of metrics/log summaries; 0 disables.
}

type Serial struct {
	Baud   int    `yaml:"baud"`   // 0 disables pacing.
	FIFO   int    `yaml:"fifo"`   // Transmit buffer depth in bytes.
	Output string `yaml:"output"` // "stdout", "stderr" or a file path.
}

type Affinity struct {
	ProducerCPU int `yaml:"producer_cpu"` // -1 leaves the goroutine unbound.
	ConsumerCPU int `yaml:"consumer_cpu"`
}

type Logs struct {
	Level string `yaml:"level"`
}

type Metrics struct {
	Addr string `yaml:"addr"` // Listen address for /metrics; empty disables.
}

// Default returns the settings of the reference board: 128-slot queue,
// 8-bit timer overflow at 18.432 MHz / 256, 115200 baud, 0-15 ms delays.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{
			Capacity:      128,
			Tick:          3555555 * time.Nanosecond,
			ConsumeEvery:  1,
			MaxDelay:      16,
			DelayUnit:     time.Millisecond,
			StatsInterval: 5 * time.Second,
		},
		Serial: Serial{
			Baud:   115200,
			FIFO:   1,
			Output: "stdout",
		},
		Affinity: Affinity{
			ProducerCPU: -1,
			ConsumerCPU: -1,
		},
		Logs: Logs{Level: "info"},
	}
}

// LoadConfig reads path (relative paths resolve against the working
// directory) on top of Default and validates the result.
func LoadConfig(path string) (*Config, error) {
	path, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute config filepath: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges; the returned error is an *api.Error.
func (c *Config) Validate() error {
	invalid := func(field string, value any) error {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid config value").
			WithContext("field", field).
			WithContext("value", value)
	}
	p := c.Pipeline
	switch {
	case p.Capacity < 2:
		return invalid("pipeline.capacity", p.Capacity)
	case p.Tick <= 0:
		return invalid("pipeline.tick", p.Tick)
	case p.ConsumeEvery == 0:
		return invalid("pipeline.consume_every", p.ConsumeEvery)
	case p.MaxDelay < 0:
		return invalid("pipeline.max_delay", p.MaxDelay)
	case p.DelayUnit < 0:
		return invalid("pipeline.delay_unit", p.DelayUnit)
	case p.StatsInterval < 0:
		return invalid("pipeline.stats_interval", p.StatsInterval)
	case c.Serial.Baud < 0:
		return invalid("serial.baud", c.Serial.Baud)
	case c.Serial.FIFO < 1:
		return invalid("serial.fifo", c.Serial.FIFO)
	case c.Serial.Output == "":
		return invalid("serial.output", c.Serial.Output)
	case c.Affinity.ProducerCPU < -1:
		return invalid("affinity.producer_cpu", c.Affinity.ProducerCPU)
	case c.Affinity.ConsumerCPU < -1:
		return invalid("affinity.consumer_cpu", c.Affinity.ConsumerCPU)
	}
	return nil
}
