package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/couchcryptid/road-weather-service/internal/service"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer answers the sensor-pair analysis endpoints.
type Analyzer interface {
	Sensors(ctx context.Context, near *service.NearQuery) ([]domain.Sensor, error)
	PairHourly(ctx context.Context, req service.PairRequest, maxHours int) (service.PairHourlyResult, error)
	PairDaily(ctx context.Context, req service.PairRequest, date string) (service.PairDailyResult, error)
	EventAggregates(ctx context.Context, req service.PairRequest, date string) (service.EventAggregatesResult, error)
	Events(ctx context.Context, req service.PairRequest, start, end time.Time) (service.EventsResult, error)
	CompareSensors(ctx context.Context, req service.PairRequest, date string, ws100Sensors []string) ([]service.PairDailyResult, error)
}

// RoadForecaster serves the city road forecast.
type RoadForecaster interface {
	CityRoadForecast(ctx context.Context, days int) (domain.ZoneForecast, error)
}

// Server exposes the analysis API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	analyzer   Analyzer
	forecaster RoadForecaster
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, analyzer Analyzer, forecaster RoadForecaster, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		analyzer:   analyzer,
		forecaster: forecaster,
		metrics:    metrics,
		logger:     logger,
	}

	router.Use(requestIDMiddleware, s.accessLogMiddleware)

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Full paths on the root router so a wrong method answers 405, not 404.
	router.HandleFunc("/api/sensors", s.instrument("sensors", s.handleSensors)).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze/pair-hourly", s.instrument("pair_hourly", s.handlePairHourly)).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze/pair-daily", s.instrument("pair_daily", s.handlePairDaily)).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze/event-aggregates", s.instrument("event_aggregates", s.handleEventAggregates)).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze/events", s.instrument("events", s.handleEvents)).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze/compare", s.instrument("compare", s.handleCompare)).Methods(http.MethodGet)
	router.HandleFunc("/api/road-forecast/city", s.instrument("road_forecast", s.handleCityRoadForecast)).Methods(http.MethodGet)
	router.HandleFunc("/api/physics/dewpoint", s.instrument("dewpoint", s.handleDewpoint)).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
