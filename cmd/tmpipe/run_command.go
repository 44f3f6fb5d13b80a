package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ib-77/stagepool/internal/config"
	"github.com/ib-77/stagepool/internal/logging"
	"github.com/ib-77/stagepool/internal/traffic"
	"github.com/ib-77/stagepool/pkg/metrics"
)

type runOverrides struct {
	vehicles    int
	ticks       int
	seed        int64
	logLevel    string
	metricsAddr string
}

func (o *runOverrides) bind(fs *pflag.FlagSet) {
	fs.IntVar(&o.vehicles, "vehicles", 0, "Override the number of simulated vehicles")
	fs.IntVar(&o.ticks, "ticks", 0, "Override the number of simulated ticks")
	fs.Int64Var(&o.seed, "seed", 0, "Override the random seed")
	fs.StringVar(&o.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

// apply copies explicitly set flags over cfg and revalidates it.
func (o *runOverrides) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("vehicles") {
		cfg.Simulation.Vehicles = o.vehicles
	}
	if fs.Changed("ticks") {
		cfg.Simulation.Ticks = o.ticks
	}
	if fs.Changed("seed") {
		cfg.Simulation.Seed = o.seed
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(o.logLevel))
	}
	return cfg.Validate()
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the traffic pipeline and print stage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *loaded
			cfg.Pipeline.Stages = append([]config.Stage(nil), loaded.Pipeline.Stages...)
			if err := overrides.apply(cmd.Flags(), &cfg); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(&cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep, err := runSimulation(runCtx, &cfg, logger, overrides.metricsAddr)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(rep))
			return nil
		},
	}

	overrides.bind(cmd.Flags())
	return cmd
}

func runSimulation(ctx context.Context, cfg *config.Config, logger *slog.Logger, metricsAddr string) (traffic.Report, error) {
	opts := []traffic.SimOption{traffic.WithLogger(logger)}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		observer, err := metrics.NewObserver(reg, cfg.Metrics.Namespace)
		if err != nil {
			return traffic.Report{}, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, traffic.WithObserver(observer))

		if metricsAddr != "" {
			shutdown, err := serveMetrics(reg, metricsAddr, logger)
			if err != nil {
				return traffic.Report{}, err
			}
			defer shutdown()
		}
	}

	logger.Info("simulation starting",
		"vehicles", cfg.Simulation.Vehicles,
		"ticks", cfg.Simulation.Ticks,
		"stages", len(cfg.Pipeline.Stages))

	rep, err := traffic.NewSim(cfg, opts...).Run(ctx)
	if err != nil {
		return rep, fmt.Errorf("run simulation: %w", err)
	}

	logger.Info("simulation finished",
		"ticks", rep.Ticks,
		"commands", rep.Commands,
		"elapsed", rep.Elapsed)
	return rep, nil
}

func serveMetrics(reg *prometheus.Registry, addr string, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}
