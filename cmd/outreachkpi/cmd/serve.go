package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/outreachkpi/internal/api"
	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/dashboard"
	"github.com/dbsmedya/outreachkpi/internal/database"
	"github.com/dbsmedya/outreachkpi/internal/logger"
	"github.com/dbsmedya/outreachkpi/internal/notify"
	"github.com/dbsmedya/outreachkpi/internal/publish"
	"github.com/dbsmedya/outreachkpi/internal/telemetry"
)

const (
	noticeRingSize  = 200
	shutdownTimeout = 10 * time.Second
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll every dataset and serve metrics over HTTP",
	Long: `Serve starts a data source per configured dataset, polls each one on its
refresh interval and exposes the results.

Endpoints:
  /                              Web dashboard
  /api/datasets                  Dataset summaries
  /api/datasets/{name}           Full dataset view with metrics
  /api/datasets/{name}/refresh   Manual refresh (POST)
  /api/notices                   Recent notifications
  /metrics                       Prometheus metrics
  /health, /ready                Probes

Business constants, formulas and empty-result policies are reloaded when the
configuration file changes.

Example:
  outreachkpi serve --config outreachkpi.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true,
		"Reload business settings when the configuration file changes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Infow("Starting outreachkpi server",
		"config", configFile,
		"listen", cfg.Server.Listen,
		"datasets", len(cfg.Datasets),
	)

	tel := telemetry.New()
	notices := notify.NewRing(noticeRingSize)
	notifier := notify.Fanout{notify.NewLogNotifier(log), notices}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher publish.Publisher
	if cfg.Publish.Redis.Enabled {
		redisPub := publish.NewRedisPublisher(&cfg.Publish.Redis, log)
		if err := redisPub.Ping(ctx); err != nil {
			log.Warnw("Redis not reachable, snapshots will be retried on every refresh",
				"addr", cfg.Publish.Redis.Addr,
				"error", err,
			)
		}
		publisher = redisPub
		defer publisher.Close()
	}

	dbManager := database.NewManager()
	defer dbManager.Close()

	mgr, err := dashboard.FromConfig(cfg, dashboard.Deps{
		DB:        dbManager,
		Notifier:  notifier,
		Telemetry: tel,
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to build data sources: %w", err)
	}

	server := api.NewServer(mgr, notices, tel, cfg.Server, log)
	if err := server.Start(); err != nil {
		return err
	}
	log.Infow("HTTP server listening", "addr", server.Addr())

	mgr.Start(ctx)

	var watcher *config.Watcher
	if serveWatch {
		watcher, err = config.NewWatcher(configFile,
			func(newCfg *config.Config) {
				overrides := GetCLIOverrides()
				newCfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.IntervalSeconds)
				if err := newCfg.Validate(); err != nil {
					log.Errorw("Reloaded configuration is invalid, keeping current settings", "error", err)
					return
				}
				if err := mgr.Reload(ctx, newCfg); err != nil {
					log.Errorw("Failed to apply reloaded configuration", "error", err)
					return
				}
				log.Infow("Configuration reloaded", "config", configFile)
			},
			func(err error) {
				log.Errorw("Configuration watcher error", "error", err)
			},
		)
		if err != nil {
			log.Warnw("Configuration watcher disabled", "error", err)
		}
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	log.Warnw("Received shutdown signal - stopping...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}

	cancel()
	mgr.Stop()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			log.Warnw("Failed to stop configuration watcher", "error", err)
		}
	}

	log.Info("Shutdown complete")
	return nil
}
