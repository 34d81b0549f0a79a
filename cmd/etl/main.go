package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/crisis-signal-etl/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-signal-etl/internal/app"
	"github.com/couchcryptid/crisis-signal-etl/internal/config"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
	"github.com/couchcryptid/crisis-signal-etl/internal/pipeline"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(ctx, cfg.SQLitePath, metrics, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, components.Transformer, pipeline.MultiLoader{writer, store},
		logger, metrics, cfg.BatchSize, pipeline.WithWorkers(cfg.AnalyzeWorkers))

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady{p, store}, store, components.Gazetteer, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("sqlite close error", "error", err)
	}

	logger.Info("shutdown complete")
}
