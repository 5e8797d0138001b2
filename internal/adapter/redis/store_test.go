package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/couchcryptid/road-weather-service/internal/domain"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func ptr(v float64) *float64 { return &v }

func hour(i int) time.Time {
	return time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
}

func TestStore_SaveAndLoadReadings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveReadings(ctx, []domain.SensorReading{
		{Kind: domain.SourceLHT, SensorID: "Kaunisharjuntie", Timestamp: hour(2), TempC: ptr(3), RHPct: ptr(90)},
		{Kind: domain.SourceLHT, SensorID: "Kaunisharjuntie", Timestamp: hour(0), TempC: ptr(1), RHPct: ptr(95)},
		{Kind: domain.SourceLHT, SensorID: "Kaunisharjuntie", Timestamp: hour(1), TempC: ptr(2), RHPct: ptr(92)},
		{Kind: domain.SourceWS100, SensorID: "Saaritie", Timestamp: hour(1), RainMMHour: ptr(0.4)},
	}))

	got, err := store.Readings(ctx, domain.SourceLHT, "Kaunisharjuntie", hour(0), hour(2))
	require.NoError(t, err)

	require.Len(t, got, 2, "end is exclusive")
	assert.True(t, hour(0).Equal(got[0].Timestamp))
	assert.True(t, hour(1).Equal(got[1].Timestamp))
	assert.Equal(t, 2.0, *got[1].TempC)

	ws, err := store.Readings(ctx, domain.SourceWS100, "Saaritie", hour(0), hour(24))
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, 0.4, *ws[0].RainMMHour)
}

func TestStore_SaveReadings_ReplacesSameHour(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveReadings(ctx, []domain.SensorReading{
		{Kind: domain.SourceLHT, SensorID: "s", Timestamp: hour(0), TempC: ptr(1)},
	}))
	require.NoError(t, store.SaveReadings(ctx, []domain.SensorReading{
		{Kind: domain.SourceLHT, SensorID: "s", Timestamp: hour(0), TempC: ptr(7)},
	}))

	got, err := store.Readings(ctx, domain.SourceLHT, "s", hour(0), hour(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7.0, *got[0].TempC)
}

func TestStore_Readings_NoData(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Readings(context.Background(), domain.SourceWind, "nowhere", hour(0), hour(5))
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestStore_Bounds(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, _, err := store.Bounds(ctx, domain.SourceLHT, "s")
	require.ErrorIs(t, err, domain.ErrNoData)

	require.NoError(t, store.SaveReadings(ctx, []domain.SensorReading{
		{Kind: domain.SourceLHT, SensorID: "s", Timestamp: hour(5)},
		{Kind: domain.SourceLHT, SensorID: "s", Timestamp: hour(2)},
		{Kind: domain.SourceLHT, SensorID: "s", Timestamp: hour(9)},
	}))

	first, last, err := store.Bounds(ctx, domain.SourceLHT, "s")
	require.NoError(t, err)
	assert.Equal(t, hour(2), first)
	assert.Equal(t, hour(9), last)
}

func TestStore_SensorsNear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.RegisterSensors(ctx, []domain.Sensor{
		{ID: "Saaritie", Name: "Saaritie", Type: domain.SensorWS100, Lat: 62.136788, Lon: 25.762473},
		{ID: "Tuulimyllyntie", Name: "Tuulimyllyntie", Type: domain.SensorWS100, Lat: 62.221789, Lon: 25.695931},
		{ID: "Tahtiniementie", Name: "Tähtiniementie", Type: domain.SensorWS100, Lat: 62.011127, Lon: 25.552755},
	}))

	near, err := store.SensorsNear(ctx, 62.2415, 25.7209, 15)
	require.NoError(t, err)

	require.Len(t, near, 2)
	assert.Equal(t, "Tuulimyllyntie", near[0].ID)
	assert.Equal(t, "Saaritie", near[1].ID)
	assert.Equal(t, domain.SensorWS100, near[0].Type)
}

func TestStore_ForecastCache(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.Forecast(ctx, "city")
	require.ErrorIs(t, err, ErrCacheMiss)

	zf := domain.ZoneForecast{ID: "f-1", Zone: "city", ForecastDays: 2}
	zf.Stats.RiskLevel24h = domain.RiskMedium
	require.NoError(t, store.SaveForecast(ctx, "city", zf, time.Minute))

	got, err := store.Forecast(ctx, "city")
	require.NoError(t, err)
	assert.Equal(t, "f-1", got.ID)
	assert.Equal(t, domain.RiskMedium, got.Stats.RiskLevel24h)

	mr.FastForward(2 * time.Minute)
	_, err = store.Forecast(ctx, "city")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestStore_CheckReadiness(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, store.CheckReadiness(context.Background()))

	mr.Close()
	assert.Error(t, store.CheckReadiness(context.Background()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "roadweather:readings:ws100:Saaritie", readingsKey(domain.SourceWS100, "Saaritie"))
	assert.Equal(t, "roadweather:forecast:city-10", forecastKey("city-10"))
	assert.Equal(t, "1727740800", score(hour(0)))
}
