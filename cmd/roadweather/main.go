package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/road-weather-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/road-weather-service/internal/adapter/kafka"
	"github.com/couchcryptid/road-weather-service/internal/adapter/openmeteo"
	redisadapter "github.com/couchcryptid/road-weather-service/internal/adapter/redis"
	"github.com/couchcryptid/road-weather-service/internal/config"
	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/couchcryptid/road-weather-service/internal/pipeline"
	"github.com/couchcryptid/road-weather-service/internal/service"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := redisadapter.NewStore(redisadapter.NewClient(cfg), logger)
	sensors := service.DefaultSensors()
	if err := store.RegisterSensors(ctx, sensors); err != nil {
		logger.Warn("sensor registration failed", "error", err)
	}

	// Forecast fetching is feature-flagged via OPENMETEO_ENABLED.
	var forecaster service.Forecaster
	if cfg.OpenMeteoEnabled {
		client := openmeteo.NewClient(cfg, metrics, logger)
		forecaster = openmeteo.NewCachedClient(client, cfg.OpenMeteoCacheTTL, openmeteo.MaxForecastDays, clockwork.NewRealClock(), metrics)
		metrics.ForecastEnabled.Set(1)
		logger.Info("open-meteo forecasts enabled", "base_url", cfg.OpenMeteoBaseURL, "cache_ttl", cfg.OpenMeteoCacheTTL)
	} else {
		logger.Info("open-meteo forecasts disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	sensorIDs := make([]string, 0, len(sensors)+1)
	for _, s := range sensors {
		sensorIDs = append(sensorIDs, s.ID)
	}
	sensorIDs = append(sensorIDs, cfg.WindStationID)
	transformer := pipeline.NewTransformer(logger, sensorIDs...)
	p := pipeline.New(reader, transformer, store, logger, metrics, cfg.BatchSize)

	analyzer := service.NewAnalyzer(store, store, service.NewCatalog(sensors), service.AnalyzerOptions{
		DefaultLHTSensor:   cfg.DefaultLHTSensor,
		DefaultWS100Sensor: cfg.DefaultWS100Sensor,
		WindStationID:      cfg.WindStationID,
		Location:           cfg.Location,
	}, metrics, logger)

	refresher := service.NewForecastRefresher(forecaster, store, writer, service.ForecastRefresherOptions{
		Zone: service.ForecastZone{
			Name:      "jyvaskyla",
			Latitude:  cfg.ForecastLat,
			Longitude: cfg.ForecastLon,
			Days:      cfg.ForecastDays,
		},
		Thresholds: domain.DefaultThresholds(),
		Location:   cfg.Location,
		CacheTTL:   cfg.OpenMeteoCacheTTL,
	}, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, analyzer, refresher, readiness{store, p}, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	// Start forecast refresher.
	go refresher.Run(ctx, cfg.ForecastRefreshInterval)

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
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// readiness requires Redis to answer and the pipeline to have stored a batch.
type readiness struct {
	store    *redisadapter.Store
	pipeline *pipeline.Pipeline
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.store.CheckReadiness(ctx); err != nil {
		return err
	}
	return r.pipeline.CheckReadiness(ctx)
}
