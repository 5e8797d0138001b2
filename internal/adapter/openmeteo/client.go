package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/config"
	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

const forecastPath = "/v1/forecast"

// MaxForecastDays is the longest horizon the forecast endpoint serves.
const MaxForecastDays = 10

var hourlyVars = []string{
	"temperature_2m",
	"relativehumidity_2m",
	"dewpoint_2m",
	"precipitation",
	"rain",
	"snowfall",
	"weathercode",
	"windspeed_10m",
	"winddirection_10m",
	"surface_pressure",
}

// Client fetches hourly point forecasts from the Open-Meteo API.
type Client struct {
	http     *resty.Client
	lat, lon float64
	loc      *time.Location
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates a forecast client for the configured point.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return newClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, cfg.ForecastLat, cfg.ForecastLon, cfg.Location, metrics, logger)
}

func newClient(baseURL string, timeout time.Duration, lat, lon float64, loc *time.Location, metrics *observability.Metrics, logger *slog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	rc.JSONMarshal = json.Marshal
	rc.JSONUnmarshal = json.Unmarshal
	if loc == nil {
		loc = time.UTC
	}
	return &Client{http: rc, lat: lat, lon: lon, loc: loc, metrics: metrics, logger: logger}
}

// Forecast returns the hourly forecast for the next days days, in the
// client's location.
func (c *Client) Forecast(ctx context.Context, days int) ([]domain.ForecastHour, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, fmt.Errorf("forecast_days must be in [1, %d], got %d: %w", MaxForecastDays, days, domain.ErrInvalidRange)
	}

	start := time.Now()
	var body response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":      strconv.FormatFloat(c.lat, 'f', -1, 64),
			"longitude":     strconv.FormatFloat(c.lon, 'f', -1, 64),
			"hourly":        strings.Join(hourlyVars, ","),
			"forecast_days": strconv.Itoa(days),
			"timezone":      c.loc.String(),
		}).
		SetResult(&body).
		Get(forecastPath)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.ForecastFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	if resp.IsError() {
		c.metrics.ForecastFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode(), resp.String())
	}

	hours, err := body.Hourly.toForecastHours(c.loc)
	if err != nil {
		c.metrics.ForecastFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.ForecastFetches.WithLabelValues("success").Inc()
	c.logger.Debug("fetched forecast", "hours", len(hours), "days", days)
	return hours, nil
}

// Open-Meteo API response types.

type response struct {
	Timezone string `json:"timezone"`
	Hourly   hourly `json:"hourly"`
}

type hourly struct {
	Time             []string   `json:"time"`
	Temperature      []*float64 `json:"temperature_2m"`
	RelativeHumidity []*float64 `json:"relativehumidity_2m"`
	Dewpoint         []*float64 `json:"dewpoint_2m"`
	Precipitation    []*float64 `json:"precipitation"`
	Rain             []*float64 `json:"rain"`
	Snowfall         []*float64 `json:"snowfall"`
	WeatherCode      []*int     `json:"weathercode"`
	WindSpeed        []*float64 `json:"windspeed_10m"`
	WindDirection    []*float64 `json:"winddirection_10m"`
	SurfacePressure  []*float64 `json:"surface_pressure"`
}

// Times come back as local wall-clock hours without an offset.
const timeLayout = "2006-01-02T15:04"

func (h hourly) toForecastHours(loc *time.Location) ([]domain.ForecastHour, error) {
	out := make([]domain.ForecastHour, 0, len(h.Time))
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(timeLayout, ts, loc)
		if err != nil {
			return nil, fmt.Errorf("parse forecast time %q: %w", ts, err)
		}
		out = append(out, domain.ForecastHour{
			Time:               t,
			TemperatureC:       at(h.Temperature, i),
			RelativeHumidity:   at(h.RelativeHumidity, i),
			DewpointC:          at(h.Dewpoint, i),
			RainMM:             at(h.Rain, i),
			SnowfallCM:         at(h.Snowfall, i),
			WindSpeedKmh:       at(h.WindSpeed, i),
			WindDirectionDeg:   at(h.WindDirection, i),
			SurfacePressureHPa: at(h.SurfacePressure, i),
		})
	}
	return out, nil
}

// at tolerates short or missing columns.
func at(col []*float64, i int) *float64 {
	if i < len(col) {
		return col[i]
	}
	return nil
}
