package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/neo-stream-service/internal/adapter/api"
	httpadapter "github.com/couchcryptid/neo-stream-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/neo-stream-service/internal/adapter/kafka"
	"github.com/couchcryptid/neo-stream-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/neo-stream-service/internal/adapter/sse"
	"github.com/couchcryptid/neo-stream-service/internal/adapter/websocket"
	"github.com/couchcryptid/neo-stream-service/internal/chart"
	"github.com/couchcryptid/neo-stream-service/internal/config"
	"github.com/couchcryptid/neo-stream-service/internal/field"
	"github.com/couchcryptid/neo-stream-service/internal/observability"
	"github.com/couchcryptid/neo-stream-service/internal/stream"
	"github.com/couchcryptid/neo-stream-service/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Bulk snapshots come from the database when a DSN is set, otherwise from the REST API.
	var snapshots stream.SnapshotSource
	if cfg.SnapshotDSN != "" {
		store, err := sqlstore.Open(context.Background(), cfg.SnapshotDriver, cfg.SnapshotDSN, logger)
		if err != nil {
			logger.Error("failed to open snapshot database", "driver", cfg.SnapshotDriver, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		snapshots = store
		logger.Info("snapshot source: database", "driver", cfg.SnapshotDriver)
	} else {
		snapshots = api.NewClient(cfg.SnapshotURL, cfg.SnapshotTimeout, logger)
		logger.Info("snapshot source: rest", "url", cfg.SnapshotURL)
	}

	var feed stream.Feed
	switch cfg.FeedTransport {
	case config.FeedWebSocket:
		feed = websocket.NewClient(cfg.FeedURL, logger)
	case config.FeedKafka:
		reader := kafkaadapter.NewReader(cfg, logger)
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error("kafka reader close error", "error", err)
			}
		}()
		feed = reader
	default:
		feed = sse.NewClient(cfg.FeedURL, logger)
	}
	logger.Info("live feed", "transport", cfg.FeedTransport)

	views := view.NewStore()
	renderers := chart.Renderers{views}
	if cfg.KafkaChartTopic != "" {
		chartWriter := kafkaadapter.NewChartWriter(cfg, logger, metrics)
		defer func() {
			if err := chartWriter.Close(); err != nil {
				logger.Error("kafka chart writer close error", "error", err)
			}
		}()
		renderers = append(renderers, chartWriter)
		logger.Info("publishing chart rebuilds", "topic", cfg.KafkaChartTopic)
	}

	coordinator := stream.New(snapshots, feed, renderers, views, stream.Options{
		FetchTimeout: cfg.SnapshotTimeout,
		TickInterval: cfg.FieldTickInterval,
		Field: field.Config{
			Width:         cfg.FieldWidth,
			Height:        cfg.FieldHeight,
			Charge:        cfg.FieldCharge,
			Padding:       cfg.FieldPadding,
			EnterDuration: cfg.FieldEnterDuration,
		},
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, coordinator, views, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the stream coordinator.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := coordinator.Run(ctx); err != nil {
			logger.Error("coordinator error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("coordinator did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
}
