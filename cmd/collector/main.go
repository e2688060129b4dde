package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/labor-stats-etl/internal/adapter/bls"
	"github.com/couchcryptid/labor-stats-etl/internal/adapter/csvstore"
	httpadapter "github.com/couchcryptid/labor-stats-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/labor-stats-etl/internal/adapter/kafka"
	"github.com/couchcryptid/labor-stats-etl/internal/catalog"
	"github.com/couchcryptid/labor-stats-etl/internal/config"
	"github.com/couchcryptid/labor-stats-etl/internal/observability"
	"github.com/couchcryptid/labor-stats-etl/internal/scheduler"
	"github.com/couchcryptid/labor-stats-etl/internal/updater"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			logger.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
		logger.Info("catalog loaded from file", "path", cfg.CatalogPath, "series", cat.Len())
	}

	store := csvstore.New(cfg.DatasetPath)
	client := bls.NewClient(cfg.BLSAPIKey, cfg.BLSBaseURL, cfg.BLSTimeout, metrics, logger)

	// Kafka announcing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var announcer updater.Announcer
	var kafkaCloser *kafkaadapter.Announcer
	if cfg.KafkaEnabled {
		kafkaCloser = kafkaadapter.NewAnnouncer(cfg, logger)
		announcer = kafkaCloser
		logger.Info("kafka announcing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka announcing disabled")
	}

	u := updater.New(client, store, announcer, cat, cfg.StartYear, cfg.RevisionMode, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cat, store, u, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runUpdate := func() {
		if _, err := u.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("update run failed", "error", err)
		}
	}

	sched := scheduler.New(logger)
	if err := sched.Schedule(cfg.UpdateSchedule, "dataset-update", runUpdate); err != nil {
		logger.Error("failed to schedule updates", "error", err)
		os.Exit(1)
	}
	sched.Start()
	logger.Info("update schedule active", "spec", cfg.UpdateSchedule)

	var startupRun sync.WaitGroup
	if cfg.UpdateOnStart {
		startupRun.Add(1)
		go func() {
			defer startupRun.Done()
			runUpdate()
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Drain both the cron jobs and a still-running startup update before
	// closing the announcer they may be publishing to.
	sched.Stop()
	startupRun.Wait()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaCloser != nil {
		if err := kafkaCloser.Close(); err != nil {
			logger.Error("kafka announcer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
