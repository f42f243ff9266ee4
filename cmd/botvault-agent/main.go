// Package main provides the entry point for botvault-agent.
//
// botvault-agent keeps the databases of every configured bot account open,
// sweeps expired entries on a schedule, optionally drains redemption queues
// through an external command and exports Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/botvault/internal/agent"
	"github.com/yndnr/botvault/internal/agent/config"
	"github.com/yndnr/botvault/internal/infra/buildinfo"
	"github.com/yndnr/botvault/internal/infra/confloader"
	"github.com/yndnr/botvault/internal/infra/shutdown"
	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		dataDir     = flag.String("data-dir", "", "Override storage.data_dir")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	info := buildinfo.Get()
	if *showVersion {
		fmt.Printf("botvault-agent %s\n", info)
		return nil
	}

	overrides := map[string]any{}
	if *dataDir != "" {
		overrides["storage.data_dir"] = *dataDir
	}
	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stdout,
		Service: "botvault-agent",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting botvault-agent", append(info.LogAttrs(), "config", *configFile)...)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.New()
	registry := agent.NewRegistry(agent.RegistryConfigFrom(cfg.Storage, log, metrics))
	metrics.MustRegister(metric.NewQueueCollector(registry))

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log.Slog())
	shutdownHandler.OnShutdown("registry", func(context.Context) error {
		return registry.Close()
	})

	ctx := context.Background()
	if err := openAccounts(ctx, cfg, registry); err != nil {
		registry.Close()
		return err
	}

	if cfg.Metrics.Addr != "" {
		srv := newMetricsServer(cfg.Metrics.Addr, metrics)
		shutdownHandler.OnShutdown("metrics", srv.Shutdown)
		go func() {
			log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	maintainer, err := newMaintainer(cfg, registry, metrics, log)
	if err != nil {
		registry.Close()
		return err
	}
	maintainer.Start()
	shutdownHandler.OnShutdown("maintainer", maintainer.Stop)

	if *configFile != "" {
		if err := watchConfig(*configFile, overrides, log, shutdownHandler); err != nil {
			log.Warn("config watcher disabled", "error", err)
		}
	}

	log.Info("agent started", "accounts", registry.Names())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("agent stopped gracefully")
	return nil
}

func openAccounts(ctx context.Context, cfg *config.Config, registry *agent.Registry) error {
	names := cfg.Accounts
	if len(names) == 0 {
		found, err := registry.Discover()
		if err != nil {
			return err
		}
		names = found
	}
	if len(names) == 0 {
		logger.Warn("no accounts configured or found", "data_dir", cfg.Storage.DataDir)
		return nil
	}
	err := registry.OpenAll(ctx, names)
	if err != nil && len(registry.Names()) == 0 {
		return fmt.Errorf("no account could be opened: %w", err)
	}
	if err != nil {
		logger.Warn("some accounts failed to open", "opened", len(registry.Names()), "requested", len(names))
	}
	return nil
}

func newMaintainer(cfg *config.Config, registry *agent.Registry, metrics *metric.Metrics, log logger.Logger) (*agent.Maintainer, error) {
	opts := []agent.MaintainerOption{
		agent.WithMaintainerMetrics(metrics),
		agent.WithMaintainerLogger(log),
	}
	if cfg.Redeem.Enabled {
		redeemer, err := agent.NewExecRedeemer(cfg.Redeem.Command)
		if err != nil {
			return nil, err
		}
		drainer := agent.NewDrainer(redeemer, cfg.Redeem.RatePerMinute, cfg.Redeem.Burst, metrics)
		opts = append(opts, agent.WithDrainer(drainer))
	}
	return agent.NewMaintainer(registry, cfg.Maintenance.Interval, opts...), nil
}

func newMetricsServer(addr string, metrics *metric.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// watchConfig reapplies the log level whenever the config file changes.
// Other settings take effect on restart.
func watchConfig(path string, overrides map[string]any, log logger.Logger, h *shutdown.Handler) error {
	w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return err
	}
	w.OnChange(func(string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("log level unchanged", "error", err)
			return
		}
		log.Info("config reloaded", "log_level", logger.Level())
	})
	w.StartAsync()
	h.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
	return nil
}
