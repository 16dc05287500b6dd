// Command geopulse runs the GeoPulse scoring service: an HTTP API that
// triggers geothermal site-scoring runs and serves their status and
// outputs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ejayaguirre/geopulse/internal/adapter/httpapi"
	"github.com/ejayaguirre/geopulse/internal/adapter/imagery"
	kafkaadapter "github.com/ejayaguirre/geopulse/internal/adapter/kafka"
	"github.com/ejayaguirre/geopulse/internal/config"
	"github.com/ejayaguirre/geopulse/internal/observability"
	"github.com/ejayaguirre/geopulse/internal/pipeline"
	"github.com/ejayaguirre/geopulse/internal/source"
	"github.com/ejayaguirre/geopulse/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	outputs, err := store.New(cfg.OutputDir, logger)
	if err != nil {
		logger.Error("failed to open output store", "error", err)
		os.Exit(1)
	}

	client := imagery.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken, cfg.GatewayTimeout, logger)
	catalog := imagery.NewCachedCatalog(client, cfg.GatewayCacheSize)

	// Run-event publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var notifier pipeline.Notifier
	var runEvents *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		runEvents = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaRunTopic, logger)
		notifier = runEvents
		logger.Info("run events enabled", "topic", cfg.KafkaRunTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("run events disabled")
	}

	orch := pipeline.New(pipeline.Options{
		Thermal:       source.NewThermalSource(catalog, logger),
		GridProximity: source.NewGridProximitySource(catalog, logger),
		Equity:        source.NewEquitySource(cfg.SVIPath, logger, metrics.EquityFallbacks),
		Outputs:       outputs,
		Notifier:      notifier,
		Logger:        logger,
		Metrics:       metrics,
		GridCellDeg:   cfg.GridCellDeg,
		Seed:          cfg.ExtractionSeed,
		RunTimeout:    cfg.RunTimeout,
	})

	srv := httpapi.NewServer(cfg.HTTPAddr, orch, outputs, cfg.Defaults, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if runEvents != nil {
		if err := runEvents.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
