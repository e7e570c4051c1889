// File: cmd/tickpipe/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/tickpipe/config"
	"github.com/momentics/tickpipe/control"
	"github.com/momentics/tickpipe/facade"
)

type flagValues struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	return newCommand(config.Default(), &flagValues{})
}

// newCommand binds flags into cfg and fv; explicitly set flags are applied
// over the YAML file named by --config.
func newCommand(cfg *config.Config, fv *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tickpipe",
		Short:         "Tick-driven SPSC producer/consumer with adaptive drain rate",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveConfig(cmd.Flags(), fv, cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), resolved)
		},
	}
	bindFlags(cmd.Flags(), fv, cfg)
	return cmd
}

func bindFlags(fs *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	fs.StringVarP(&fv.configPath, "config", "c", "", "YAML config file")
	fs.IntVar(&cfg.Pipeline.Capacity, "capacity", cfg.Pipeline.Capacity, "ring slots (one stays empty)")
	fs.DurationVar(&cfg.Pipeline.Tick, "tick", cfg.Pipeline.Tick, "consumer tick period")
	fs.Uint32Var(&cfg.Pipeline.ConsumeEvery, "consume-every", cfg.Pipeline.ConsumeEvery, "initial drain period in ticks")
	fs.Uint32Var(&cfg.Pipeline.Modifier, "modifier", cfg.Pipeline.Modifier, "manual slowdown added to the drain period")
	fs.IntVar(&cfg.Pipeline.MaxDelay, "max-delay", cfg.Pipeline.MaxDelay, "producer delay drawn from [0, max-delay) units")
	fs.DurationVar(&cfg.Pipeline.DelayUnit, "delay-unit", cfg.Pipeline.DelayUnit, "length of one producer delay unit")
	fs.Uint32Var(&cfg.Pipeline.Seed, "seed", cfg.Pipeline.Seed, "entropy seed (0 = from clock)")
	fs.BoolVar(&cfg.Pipeline.TraceProduced, "trace-produced", cfg.Pipeline.TraceProduced, "emit a line per produced record")
	fs.DurationVar(&cfg.Pipeline.StatsInterval, "stats-interval", cfg.Pipeline.StatsInterval, "stats log period (0 disables)")
	fs.IntVar(&cfg.Serial.Baud, "baud", cfg.Serial.Baud, "serial line rate (0 = unpaced)")
	fs.IntVar(&cfg.Serial.FIFO, "fifo", cfg.Serial.FIFO, "serial transmit buffer depth")
	fs.StringVar(&cfg.Serial.Output, "output", cfg.Serial.Output, "stdout, stderr or a file path")
	fs.IntVar(&cfg.Affinity.ProducerCPU, "producer-cpu", cfg.Affinity.ProducerCPU, "pin producer to CPU (-1 = no)")
	fs.IntVar(&cfg.Affinity.ConsumerCPU, "consumer-cpu", cfg.Affinity.ConsumerCPU, "pin consumer to CPU (-1 = no)")
	fs.StringVar(&cfg.Logs.Level, "log-level", cfg.Logs.Level, "zerolog level")
	fs.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "serve /metrics on this address")
}

// resolveConfig loads the file, if any, and re-applies explicitly set flags on top.
func resolveConfig(fs *pflag.FlagSet, fv *flagValues, flagged *config.Config) (*config.Config, error) {
	if fv.configPath == "" {
		return flagged, flagged.Validate()
	}
	fileCfg, err := config.LoadConfig(fv.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *pflag.Flag) {
		applyFlag(fileCfg, flagged, f.Name)
	})
	return fileCfg, fileCfg.Validate()
}

// applyFlag copies one flag-backed field from src to dst.
func applyFlag(dst, src *config.Config, name string) {
	switch name {
	case "capacity":
		dst.Pipeline.Capacity = src.Pipeline.Capacity
	case "tick":
		dst.Pipeline.Tick = src.Pipeline.Tick
	case "consume-every":
		dst.Pipeline.ConsumeEvery = src.Pipeline.ConsumeEvery
	case "modifier":
		dst.Pipeline.Modifier = src.Pipeline.Modifier
	case "max-delay":
		dst.Pipeline.MaxDelay = src.Pipeline.MaxDelay
	case "delay-unit":
		dst.Pipeline.DelayUnit = src.Pipeline.DelayUnit
	case "seed":
		dst.Pipeline.Seed = src.Pipeline.Seed
	case "trace-produced":
		dst.Pipeline.TraceProduced = src.Pipeline.TraceProduced
	case "stats-interval":
		dst.Pipeline.StatsInterval = src.Pipeline.StatsInterval
	case "baud":
		dst.Serial.Baud = src.Serial.Baud
	case "fifo":
		dst.Serial.FIFO = src.Serial.FIFO
	case "output":
		dst.Serial.Output = src.Serial.Output
	case "producer-cpu":
		dst.Affinity.ProducerCPU = src.Affinity.ProducerCPU
	case "consumer-cpu":
		dst.Affinity.ConsumerCPU = src.Affinity.ConsumerCPU
	case "log-level":
		dst.Logs.Level = src.Logs.Level
	case "metrics-addr":
		dst.Metrics.Addr = src.Metrics.Addr
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func openOutput(name string) (io.WriteCloser, error) {
	switch name {
	case "stdout":
		return nopCloser{os.Stdout}, nil
	case "stderr":
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", name, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := setupLogging(cfg.Logs.Level); err != nil {
		return err
	}
	out, err := openOutput(cfg.Serial.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	pipe, err := facade.New(cfg, facade.WithOutput(out))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	unregister := control.RegisterReloadHook(pipe.Reload)
	defer unregister()
	go watchKnobs(ctx, pipe)

	if cfg.Metrics.Addr != "" {
		srv := metricsServer(cfg.Metrics.Addr, pipe)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("[metrics] server failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("[metrics] serving /metrics")
	}

	runErr := pipe.Run(ctx)
	if err := pipe.Shutdown(); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}
	return runErr
}

func metricsServer(addr string, pipe *facade.TickPipe) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		pipe.Control().WritePrometheus(w)
	})
	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, _ *http.Request) {
		body, err := sonnet.Marshal(pipe.Control().Stats())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
