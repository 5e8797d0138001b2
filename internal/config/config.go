package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // LOCAL_TIMEZONE must resolve on minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Reading store and forecast cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Open-Meteo forecast configuration.
	OpenMeteoEnabled  bool
	OpenMeteoBaseURL  string
	OpenMeteoTimeout  time.Duration
	OpenMeteoCacheTTL time.Duration

	ForecastLat             float64
	ForecastLon             float64
	ForecastDays            int
	ForecastRefreshInterval time.Duration

	// Location is the zone for hour truncation, commute hours and daily
	// grouping.
	Location *time.Location

	DefaultLHTSensor   string
	DefaultWS100Sensor string
	WindStationID      string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	openMeteoTimeout, err := parsePositiveDuration("OPENMETEO_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	openMeteoCacheTTL, err := parsePositiveDuration("OPENMETEO_CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("FORECAST_REFRESH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}
	forecastDays, err := parseInt("FORECAST_DAYS", 10, 1, 10)
	if err != nil {
		return nil, err
	}

	lat, err := parseFloat("FORECAST_LAT", 62.2415, -90, 90)
	if err != nil {
		return nil, err
	}
	lon, err := parseFloat("FORECAST_LON", 25.7209, -180, 180)
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("LOCAL_TIMEZONE", "Europe/Helsinki")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-sensor-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "road-forecast-summaries"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "road-weather"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		OpenMeteoEnabled:  os.Getenv("OPENMETEO_ENABLED") != "false",
		OpenMeteoBaseURL:  sharedcfg.EnvOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com"),
		OpenMeteoTimeout:  openMeteoTimeout,
		OpenMeteoCacheTTL: openMeteoCacheTTL,

		ForecastLat:             lat,
		ForecastLon:             lon,
		ForecastDays:            forecastDays,
		ForecastRefreshInterval: refreshInterval,

		Location: loc,

		DefaultLHTSensor:   sharedcfg.EnvOrDefault("DEFAULT_LHT_SENSOR", "Kaunisharjuntie"),
		DefaultWS100Sensor: sharedcfg.EnvOrDefault("DEFAULT_WS100_SENSOR", "Saaritie"),
		WindStationID:      sharedcfg.EnvOrDefault("WIND_STATION_ID", "jyvaskyla-airport"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	if cfg.OpenMeteoEnabled && cfg.OpenMeteoBaseURL == "" {
		return nil, errors.New("OPENMETEO_ENABLED is true but OPENMETEO_BASE_URL is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in %d..%d", key, lo, hi)
	}
	return n, nil
}

func parseFloat(key string, def, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be a number in %g..%g", key, lo, hi)
	}
	return v, nil
}
