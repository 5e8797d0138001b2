package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Forecaster returns hourly forecasts for the next days days.
type Forecaster interface {
	Forecast(ctx context.Context, days int) ([]domain.ForecastHour, error)
}

// ForecastCache stores zone forecasts by name.
type ForecastCache interface {
	SaveForecast(ctx context.Context, name string, zf domain.ZoneForecast, ttl time.Duration) error
	Forecast(ctx context.Context, name string) (domain.ZoneForecast, error)
}

// ForecastPublisher emits zone forecasts to downstream consumers.
type ForecastPublisher interface {
	PublishForecasts(ctx context.Context, forecasts []domain.ZoneForecast) error
}

// ErrForecastDisabled is returned when no forecast source is configured.
var ErrForecastDisabled = errors.New("forecast disabled")

// ForecastZone is the point a road forecast is built for.
type ForecastZone struct {
	Name      string
	Latitude  float64
	Longitude float64
	Days      int
}

// ForecastRefresher builds city road forecasts from the forecast API,
// caches them and publishes each refresh.
type ForecastRefresher struct {
	forecaster Forecaster
	cache      ForecastCache
	publisher  ForecastPublisher
	zone       ForecastZone
	thresholds domain.Thresholds
	loc        *time.Location
	cacheTTL   time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
	refreshed  atomic.Bool
}

// ForecastRefresherOptions configures a ForecastRefresher.
type ForecastRefresherOptions struct {
	Zone       ForecastZone
	Thresholds domain.Thresholds
	Location   *time.Location
	CacheTTL   time.Duration
	Clock      clockwork.Clock
}

// NewForecastRefresher creates a refresher. forecaster may be nil when
// forecasting is disabled; cache and publisher may be nil.
func NewForecastRefresher(forecaster Forecaster, cache ForecastCache, publisher ForecastPublisher, opts ForecastRefresherOptions, metrics *observability.Metrics, logger *slog.Logger) *ForecastRefresher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ForecastRefresher{
		forecaster: forecaster,
		cache:      cache,
		publisher:  publisher,
		zone:       opts.Zone,
		thresholds: opts.Thresholds,
		loc:        opts.Location,
		cacheTTL:   opts.CacheTTL,
		clock:      opts.Clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Enabled reports whether a forecast source is configured.
func (r *ForecastRefresher) Enabled() bool {
	return r.forecaster != nil
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *ForecastRefresher) Run(ctx context.Context, interval time.Duration) {
	if !r.Enabled() {
		r.logger.Info("forecast refresher disabled")
		return
	}
	r.logger.Info("forecast refresher started", "interval", interval, "zone", r.zone.Name)

	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("forecast refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("forecast refresher stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
		}
	}
}

// Refresh builds the zone forecast for the configured horizon, caches it and
// publishes it.
func (r *ForecastRefresher) Refresh(ctx context.Context) (domain.ZoneForecast, error) {
	zf, err := r.build(ctx, r.zone.Days)
	if err != nil {
		return domain.ZoneForecast{}, err
	}
	r.store(ctx, zf)

	if r.publisher != nil {
		if err := r.publisher.PublishForecasts(ctx, []domain.ZoneForecast{zf}); err != nil {
			return zf, fmt.Errorf("publish forecast: %w", err)
		}
		r.metrics.ForecastPublished.Inc()
	}
	r.refreshed.Store(true)
	r.logger.Info("forecast refreshed",
		"forecast_id", zf.ID,
		"risk_level_24h", zf.Stats.RiskLevel24h,
		"high_risk_hours_72h", zf.Stats.HighRiskHours72h,
	)
	return zf, nil
}

// CityRoadForecast returns the cached forecast for days, building and
// caching a fresh one on a miss.
func (r *ForecastRefresher) CityRoadForecast(ctx context.Context, days int) (domain.ZoneForecast, error) {
	if days < 1 || days > 10 {
		return domain.ZoneForecast{}, fmt.Errorf("%w: forecast_days must be in [1, 10], got %d", domain.ErrInvalidRange, days)
	}
	if !r.Enabled() {
		return domain.ZoneForecast{}, ErrForecastDisabled
	}
	if r.cache != nil {
		zf, err := r.cache.Forecast(ctx, r.cacheName(days))
		if err == nil {
			return zf, nil
		}
		r.logger.Debug("forecast cache lookup missed", "days", days, "error", err)
	}

	zf, err := r.build(ctx, days)
	if err != nil {
		return domain.ZoneForecast{}, err
	}
	r.store(ctx, zf)
	return zf, nil
}

// CheckReadiness fails until the first refresh has been published. A
// disabled refresher is always ready.
func (r *ForecastRefresher) CheckReadiness(_ context.Context) error {
	if r.Enabled() && !r.refreshed.Load() {
		return errors.New("forecast has not been refreshed yet")
	}
	return nil
}

func (r *ForecastRefresher) build(ctx context.Context, days int) (domain.ZoneForecast, error) {
	if !r.Enabled() {
		return domain.ZoneForecast{}, ErrForecastDisabled
	}
	hours, err := r.forecaster.Forecast(ctx, days)
	if err != nil {
		return domain.ZoneForecast{}, fmt.Errorf("fetch forecast: %w", err)
	}
	rf, err := domain.AnalyzeForecast(hours, r.thresholds, r.loc)
	if err != nil {
		return domain.ZoneForecast{}, err
	}
	r.metrics.EventsDetected.Add(float64(len(rf.Events)))
	return domain.ZoneForecast{
		ID:           uuid.NewString(),
		Zone:         r.zone.Name,
		Latitude:     r.zone.Latitude,
		Longitude:    r.zone.Longitude,
		ForecastDays: days,
		RoadForecast: rf,
	}, nil
}

func (r *ForecastRefresher) store(ctx context.Context, zf domain.ZoneForecast) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SaveForecast(ctx, r.cacheName(zf.ForecastDays), zf, r.cacheTTL); err != nil {
		r.logger.Warn("cache forecast failed", "error", err, "forecast_id", zf.ID)
	}
}

func (r *ForecastRefresher) cacheName(days int) string {
	return r.zone.Name + "-" + strconv.Itoa(days)
}
