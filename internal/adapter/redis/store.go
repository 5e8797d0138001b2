package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/config"
	"github.com/couchcryptid/road-weather-service/internal/domain"
	goredis "github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// ErrCacheMiss is returned when a cached forecast is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

const (
	sensorGeoKey = "sensors:geo"
	keyPrefix    = "roadweather"
)

// NewClient creates a Redis client from the configuration.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Store keeps hourly sensor readings in one sorted set per source kind and
// sensor, scored by the Unix time of the hour. It also holds the sensor
// geo index and cached zone forecasts.
type Store struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewStore wraps an existing client.
func NewStore(client *goredis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func readingsKey(kind domain.SourceKind, sensorID string) string {
	return fmt.Sprintf("%s:readings:%s:%s", keyPrefix, kind, sensorID)
}

func sensorKey(id string) string {
	return fmt.Sprintf("%s:sensor:%s", keyPrefix, id)
}

func forecastKey(name string) string {
	return fmt.Sprintf("%s:forecast:%s", keyPrefix, name)
}

func score(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// SaveReadings stores a batch in one MULTI/EXEC transaction. A reading
// replaces any earlier reading for the same kind, sensor and hour.
func (s *Store) SaveReadings(ctx context.Context, readings []domain.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, r := range readings {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode reading: %w", err)
			}
			key := readingsKey(r.Kind, r.SensorID)
			sc := score(r.Timestamp)
			pipe.ZRemRangeByScore(ctx, key, sc, sc)
			pipe.ZAdd(ctx, key, &goredis.Z{Score: float64(r.Timestamp.Unix()), Member: data})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save readings: %w", err)
	}
	return nil
}

// Readings returns the readings of one sensor with from <= hour < to, in
// time order. It returns domain.ErrNoData when the range is empty.
func (s *Store) Readings(ctx context.Context, kind domain.SourceKind, sensorID string, from, to time.Time) ([]domain.SensorReading, error) {
	members, err := s.client.ZRangeByScore(ctx, readingsKey(kind, sensorID), &goredis.ZRangeBy{
		Min: score(from),
		Max: "(" + score(to),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s readings for %s: %w", kind, sensorID, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%s %s: %w", kind, sensorID, domain.ErrNoData)
	}

	out := make([]domain.SensorReading, 0, len(members))
	for _, m := range members {
		var r domain.SensorReading
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			s.logger.Warn("skipping undecodable reading", "error", err, "kind", kind, "sensor_id", sensorID)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Bounds returns the first and last stored hour for a sensor.
func (s *Store) Bounds(ctx context.Context, kind domain.SourceKind, sensorID string) (time.Time, time.Time, error) {
	key := readingsKey(kind, sensorID)
	first, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("load bounds for %s: %w", sensorID, err)
	}
	if len(first) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%s %s: %w", kind, sensorID, domain.ErrNoData)
	}
	last, err := s.client.ZRangeWithScores(ctx, key, -1, -1).Result()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("load bounds for %s: %w", sensorID, err)
	}
	return time.Unix(int64(first[0].Score), 0).UTC(), time.Unix(int64(last[0].Score), 0).UTC(), nil
}

// RegisterSensors indexes sensors by location and stores their metadata.
func (s *Store) RegisterSensors(ctx context.Context, sensors []domain.Sensor) error {
	if len(sensors) == 0 {
		return nil
	}
	locs := make([]*goredis.GeoLocation, 0, len(sensors))
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, sn := range sensors {
			data, err := json.Marshal(sn)
			if err != nil {
				return fmt.Errorf("encode sensor: %w", err)
			}
			pipe.Set(ctx, sensorKey(sn.ID), data, 0)
			locs = append(locs, &goredis.GeoLocation{Name: sn.ID, Latitude: sn.Lat, Longitude: sn.Lon})
		}
		pipe.GeoAdd(ctx, sensorGeoKey, locs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register sensors: %w", err)
	}
	return nil
}

// SensorsNear returns registered sensors within radiusKm of a point, nearest
// first.
func (s *Store) SensorsNear(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Sensor, error) {
	found, err := s.client.GeoRadius(ctx, sensorGeoKey, lon, lat, &goredis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query nearby sensors: %w", err)
	}

	out := make([]domain.Sensor, 0, len(found))
	for _, loc := range found {
		data, err := s.client.Get(ctx, sensorKey(loc.Name)).Bytes()
		if err != nil {
			s.logger.Warn("skipping sensor without metadata", "sensor_id", loc.Name, "error", err)
			continue
		}
		var sn domain.Sensor
		if err := json.Unmarshal(data, &sn); err != nil {
			s.logger.Warn("skipping undecodable sensor", "sensor_id", loc.Name, "error", err)
			continue
		}
		out = append(out, sn)
	}
	return out, nil
}

// SaveForecast caches a zone forecast under name for ttl.
func (s *Store) SaveForecast(ctx context.Context, name string, zf domain.ZoneForecast, ttl time.Duration) error {
	data, err := json.Marshal(zf)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	if err := s.client.Set(ctx, forecastKey(name), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache forecast: %w", err)
	}
	return nil
}

// Forecast returns a cached zone forecast or ErrCacheMiss.
func (s *Store) Forecast(ctx context.Context, name string) (domain.ZoneForecast, error) {
	data, err := s.client.Get(ctx, forecastKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.ZoneForecast{}, ErrCacheMiss
		}
		return domain.ZoneForecast{}, fmt.Errorf("load forecast: %w", err)
	}
	var zf domain.ZoneForecast
	if err := json.Unmarshal(data, &zf); err != nil {
		return domain.ZoneForecast{}, fmt.Errorf("decode forecast: %w", err)
	}
	return zf, nil
}

// CheckReadiness pings Redis.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
