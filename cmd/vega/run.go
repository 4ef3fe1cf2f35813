package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/vega/pkg/audit/recorder"
	"meridian-hq/vega/pkg/audit/retention"
	auditstorage "meridian-hq/vega/pkg/audit/storage"
	"meridian-hq/vega/pkg/config"
	"meridian-hq/vega/pkg/decision/engine"
	"meridian-hq/vega/pkg/experiment"
	"meridian-hq/vega/pkg/scoring"
	"meridian-hq/vega/pkg/store"
	"meridian-hq/vega/pkg/telemetry/logging"
	"meridian-hq/vega/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Vega decisioning service",
	Long: `Start the Vega decisioning service with the specified configuration.

The service opens the dataset and audit stores, starts the metrics
listener and the audit retention scheduler, and serves decisions until
interrupted.

Examples:
  # Start with default config
  vega run

  # Start with custom config
  vega run --config /etc/vega/config.yaml

  # Override the metrics listen address
  vega run --listen 0.0.0.0:9180

  # Reload the config file on change
  vega run --watch-config`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload configuration on file change")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dataset store. Unreachable at startup is fatal.
	dataStore, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Store.Path})
	if err != nil {
		return fmt.Errorf("failed to open dataset store: %w", err)
	}
	defer dataStore.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err = dataStore.Ping(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("dataset store unreachable: %w", err)
	}
	fmt.Printf("✓ Dataset store ready (%s)\n", cfg.Store.Path)

	// Audit trail: storage, async recorder, retention scheduler.
	var rec *recorder.Recorder
	if cfg.Audit.Enabled {
		sqliteCfg := auditstorage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Audit.Path
		auditStore, err := auditstorage.NewSQLiteStorage(sqliteCfg)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer auditStore.Close()

		rec = recorder.NewRecorder(auditStore, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.Audit.AsyncBuffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
		})
		defer rec.Close()

		if cfg.Audit.PruneSchedule != "" {
			pruner := retention.NewPruner(auditStore, &retention.Config{
				RetentionDays: cfg.Audit.RetentionDays,
				PruneSchedule: cfg.Audit.PruneSchedule,
				MaxRecords:    cfg.Audit.MaxRecords,
			})
			if err := pruner.Start(ctx); err != nil {
				logger.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					logger.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}
		fmt.Printf("✓ Audit trail ready (%s)\n", cfg.Audit.Path)
	}

	// External scoring services.
	var scoringClient *scoring.Client
	if cfg.Scoring.Scoring.Enabled && cfg.Scoring.Scoring.BaseURL != "" {
		scoringClient = scoring.NewClient(scoring.ClientConfig{
			Name:    "scoring",
			BaseURL: cfg.Scoring.Scoring.BaseURL,
			APIKey:  cfg.Scoring.Scoring.APIKey,
			Timeout: cfg.Scoring.Scoring.Timeout,
		})
		defer scoringClient.Close()
	}
	var similarityClient *scoring.SimilarityClient
	if cfg.Scoring.Similarity.Enabled && cfg.Scoring.Similarity.BaseURL != "" {
		similarityClient = scoring.NewSimilarityClient(scoring.ClientConfig{
			Name:    "similarity",
			BaseURL: cfg.Scoring.Similarity.BaseURL,
			APIKey:  cfg.Scoring.Similarity.APIKey,
			Timeout: cfg.Scoring.Similarity.Timeout,
		})
		defer similarityClient.Close()
	}

	// Metrics.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	// Decision engine.
	eng := engine.New(dataStore, engine.Config{
		CacheTTL:          cfg.Decision.CacheTTL,
		EnrichmentEnabled: cfg.Decision.EnrichmentEnabled,
		RuleEngineEnabled: cfg.Decision.RuleEngineEnabled,
	}, engine.Options{
		Assigner:   experiment.NewAssigner(dataStore, logger),
		Scoring:    scoringClient,
		Similarity: similarityClient,
		Recorder:   rec,
		Metrics:    collector,
		Logger:     logger,
	})

	// HTTP listener for metrics and health.
	mux := http.NewServeMux()
	if collector != nil {
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		hctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dataStore.Ping(hctx); err != nil {
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http listener starting", "address", cfg.Server.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Optional config watcher: a changed file refreshes the dataset
	// caches so new thresholds apply without waiting for TTL expiry.
	if runFlags.watchConfig {
		watcher := config.NewWatcher(cfgFile, logger)
		go func() {
			err := watcher.Watch(ctx, func(newCfg *config.Config) {
				eng.Caches().Invalidate()
				logger.Info("configuration reloaded, dataset caches invalidated")
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	fmt.Println()
	fmt.Printf("✓ Vega listening on %s\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return fmt.Errorf("http listener failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	return nil
}
