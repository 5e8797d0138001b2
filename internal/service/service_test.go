package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/couchcryptid/road-weather-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeSource struct {
	mu       sync.Mutex
	readings map[string][]domain.SensorReading
	err      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{readings: make(map[string][]domain.SensorReading)}
}

func key(kind domain.SourceKind, id string) string { return string(kind) + "/" + id }

func (f *fakeSource) add(rs ...domain.SensorReading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rs {
		k := key(r.Kind, r.SensorID)
		f.readings[k] = append(f.readings[k], r)
	}
}

func (f *fakeSource) Readings(_ context.Context, kind domain.SourceKind, id string, from, to time.Time) ([]domain.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SensorReading
	for _, r := range f.readings[key(kind, id)] {
		if !r.Timestamp.Before(from) && r.Timestamp.Before(to) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNoData
	}
	return out, nil
}

func (f *fakeSource) Bounds(_ context.Context, kind domain.SourceKind, id string) (time.Time, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.readings[key(kind, id)]
	if len(rs) == 0 {
		return time.Time{}, time.Time{}, domain.ErrNoData
	}
	first, last := rs[0].Timestamp, rs[0].Timestamp
	for _, r := range rs {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return first, last, nil
}

type fakeIndex struct{ sensors []domain.Sensor }

func (f fakeIndex) SensorsNear(context.Context, float64, float64, float64) ([]domain.Sensor, error) {
	return f.sensors, nil
}

// --- helpers ---

var day = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seed stores hours [0, n) of LHT and WS100 readings. Hours in rain get
// 1 mm/h at 97 % humidity; others are dry and breezy.
func seed(src *fakeSource, wsID string, n int, rain ...int) {
	rainy := make(map[int]bool, len(rain))
	for _, h := range rain {
		rainy[h] = true
	}
	for h := 0; h < n; h++ {
		ts := day.Add(time.Duration(h) * time.Hour)
		t, rh, mm, code := 12.0, 50.0, 0.0, 0
		if rainy[h] {
			t, rh, mm, code = 6, 97, 1, 60
		}
		c := code
		src.add(
			domain.SensorReading{Kind: domain.SourceLHT, SensorID: "Kaunisharjuntie", Timestamp: ts, TempC: ptr(t), RHPct: ptr(rh)},
			domain.SensorReading{Kind: domain.SourceWS100, SensorID: wsID, Timestamp: ts, RainMMHour: ptr(mm), PrecipCode: &c},
			domain.SensorReading{Kind: domain.SourceWind, SensorID: "airport", Timestamp: ts, WindSpeedKmh: ptr(12)},
		)
	}
}

func newAnalyzer(src service.ReadingSource, index service.SensorIndex) *service.Analyzer {
	return service.NewAnalyzer(src, index, service.NewCatalog(service.DefaultSensors()), service.AnalyzerOptions{
		DefaultLHTSensor:   "Kaunisharjuntie",
		DefaultWS100Sensor: "Saaritie",
		WindStationID:      "airport",
		Location:           time.UTC,
	}, observability.NewMetricsForTesting(), discardLogger())
}

func defaultRequest() service.PairRequest {
	return service.PairRequest{Params: domain.DefaultAnalysisParams()}
}

// --- catalog ---

func TestCatalog_LookupAndList(t *testing.T) {
	c := service.NewCatalog(service.DefaultSensors())

	s, ok := c.Lookup("tahtiniementie", domain.SensorWS100)
	require.True(t, ok)
	assert.Equal(t, "Tähtiniementie", s.Name)

	_, ok = c.Lookup("Kaunisharjuntie", domain.SensorWS100)
	assert.False(t, ok, "type must match")

	list := c.List()
	require.Len(t, list, 6)
	assert.Equal(t, domain.SensorLHT, list[0].Type)
	assert.Equal(t, "Kaakkovuorentie", list[1].ID)
}

// --- analyzer ---

func TestAnalyzer_PairHourly(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 30, 10, 11)
	a := newAnalyzer(src, nil)

	res, err := a.PairHourly(context.Background(), defaultRequest(), 24)
	require.NoError(t, err)

	assert.Equal(t, "Kaunisharjuntie", res.LHTSensor)
	assert.Equal(t, "Saaritie", res.WS100Sensor)
	require.Len(t, res.Hourly, 24)
	assert.Equal(t, day.Add(6*time.Hour), res.Hourly[0].Timestamp)
	assert.True(t, res.Hourly[4].IsRaining, "hour 10")
	assert.Equal(t, 12.0, *res.Hourly[0].WindSpeedKmh)
}

func TestAnalyzer_PairHourly_NoData(t *testing.T) {
	a := newAnalyzer(newFakeSource(), nil)

	res, err := a.PairHourly(context.Background(), defaultRequest(), 24)
	require.NoError(t, err)
	assert.Empty(t, res.Hourly)
}

func TestAnalyzer_PairHourly_InvalidInput(t *testing.T) {
	a := newAnalyzer(newFakeSource(), nil)

	_, err := a.PairHourly(context.Background(), defaultRequest(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	req := defaultRequest()
	req.WS100Sensor = "Nowhere"
	_, err = a.PairHourly(context.Background(), req, 24)
	require.ErrorIs(t, err, service.ErrUnknownSensor)

	req = defaultRequest()
	req.Params.Thresholds.LeafWetRHPct = 140
	_, err = a.PairHourly(context.Background(), req, 24)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestAnalyzer_PairDaily(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 48, 3, 4, 5, 30)
	a := newAnalyzer(src, nil)

	res, err := a.PairDaily(context.Background(), defaultRequest(), "2024-10-01")
	require.NoError(t, err)

	assert.Equal(t, "2024-10-01", res.Date)
	require.Len(t, res.Hourly, 24)
	require.NotNil(t, res.Summary.RainHours)
	assert.Equal(t, 3, *res.Summary.RainHours)
	assert.InDelta(t, 3.0, *res.Summary.RainTotalMM, 1e-9)
	assert.Equal(t, 24, res.Summary.Rows)

	_, err = a.PairDaily(context.Background(), defaultRequest(), "01.10.2024")
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestAnalyzer_EventAggregates(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 72, 3, 4, 30, 31)
	a := newAnalyzer(src, nil)

	res, err := a.EventAggregates(context.Background(), defaultRequest(), "2024-10-02")
	require.NoError(t, err)

	assert.Equal(t, 2, res.NEventsAll)
	assert.Equal(t, 1, res.NEventsDate)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "2024-10-02", res.Events[0].StartDate)
	require.NotNil(t, res.Fractions)
	require.NotNil(t, res.Heatmap)
	assert.Equal(t, []string{"2024-10-02"}, res.Heatmap.Dates)
	assert.Len(t, res.Environment, domain.DefaultPreH+domain.DefaultPostH+1)
}

func TestAnalyzer_EventAggregates_NoEventsOnDate(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 48, 3, 4)
	a := newAnalyzer(src, nil)

	res, err := a.EventAggregates(context.Background(), defaultRequest(), "2024-10-02")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NEventsAll)
	assert.Empty(t, res.Events)
	assert.Nil(t, res.Fractions)
	assert.Nil(t, res.Heatmap)
}

func TestAnalyzer_Events(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 48, 5, 6, 7)
	a := newAnalyzer(src, nil)

	res, err := a.Events(context.Background(), defaultRequest(), day, day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.Len(t, res.Windows, 1)
	require.Len(t, res.Drying, 1)
	assert.Equal(t, res.Events[0].ID, res.Windows[0].EventID)

	_, err = a.Events(context.Background(), defaultRequest(), day, day.Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestAnalyzer_Events_InvalidWindowRejectedBeforeLoad(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("must not be called")
	a := newAnalyzer(src, nil)

	req := defaultRequest()
	req.Params.PreH = -1
	_, err := a.Events(context.Background(), req, day, day.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestAnalyzer_SourceErrorPropagates(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("redis down")
	a := newAnalyzer(src, nil)

	_, err := a.PairDaily(context.Background(), defaultRequest(), "2024-10-01")
	assert.ErrorContains(t, err, "redis down")
}

func TestAnalyzer_CompareSensors(t *testing.T) {
	src := newFakeSource()
	seed(src, "Saaritie", 24, 3)
	seed(src, "Kotaniementie", 24, 3, 4)
	a := newAnalyzer(src, nil)

	res, err := a.CompareSensors(context.Background(), defaultRequest(), "2024-10-01", []string{"Kotaniementie", "Saaritie"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Kotaniementie", res[0].WS100Sensor)
	assert.Equal(t, 2, *res[0].Summary.RainHours)
	assert.Equal(t, "Saaritie", res[1].WS100Sensor)
	assert.Equal(t, 1, *res[1].Summary.RainHours)

	_, err = a.CompareSensors(context.Background(), defaultRequest(), "2024-10-01", []string{"Saaritie", "Nowhere"})
	assert.ErrorIs(t, err, service.ErrUnknownSensor)
}

func TestAnalyzer_Sensors(t *testing.T) {
	near := []domain.Sensor{{ID: "Tuulimyllyntie"}}
	a := newAnalyzer(newFakeSource(), fakeIndex{sensors: near})

	all, err := a.Sensors(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	got, err := a.Sensors(context.Background(), &service.NearQuery{Lat: 62.24, Lon: 25.72, RadiusKm: 5})
	require.NoError(t, err)
	assert.Equal(t, near, got)

	_, err = a.Sensors(context.Background(), &service.NearQuery{Lat: 95, Lon: 25, RadiusKm: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
