package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/service"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// requestIDMiddleware keeps a valid incoming X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()),
		)
	})
}

// handlerFunc is an API handler that returns its payload or an error.
type handlerFunc func(r *http.Request) (any, error)

// instrument turns a handlerFunc into an http.HandlerFunc that writes JSON,
// maps errors to status codes and records analysis metrics.
func (s *Server) instrument(endpoint string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		payload, err := h(r)
		s.metrics.AnalysisDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		if err != nil {
			status, outcome := classify(err)
			s.metrics.Analyses.WithLabelValues(endpoint, outcome).Inc()
			if status >= http.StatusInternalServerError {
				s.logger.Error("request failed", "endpoint", endpoint, "error", err, "request_id", RequestID(r.Context()))
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		s.metrics.Analyses.WithLabelValues(endpoint, "success").Inc()
		writeJSON(w, http.StatusOK, payload)
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, service.ErrUnknownSensor):
		return http.StatusNotFound, "invalid"
	case errors.Is(err, service.ErrForecastDisabled):
		return http.StatusServiceUnavailable, "error"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
