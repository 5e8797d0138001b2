package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownSensor is returned when a request names a sensor that is not in
// the catalog or has the wrong type.
var ErrUnknownSensor = errors.New("unknown sensor")

// MaxPreviewHours caps PairHourly.
const MaxPreviewHours = 24 * 366

// lookbackRows is how many hours before a requested range are loaded so the
// recent-wet flag sees its full lookback.
const lookbackRows = 2

// ReadingSource loads stored hourly readings.
type ReadingSource interface {
	Readings(ctx context.Context, kind domain.SourceKind, sensorID string, from, to time.Time) ([]domain.SensorReading, error)
	Bounds(ctx context.Context, kind domain.SourceKind, sensorID string) (time.Time, time.Time, error)
}

// SensorIndex finds sensors by location.
type SensorIndex interface {
	SensorsNear(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Sensor, error)
}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	DefaultLHTSensor   string
	DefaultWS100Sensor string
	WindStationID      string
	Location           *time.Location
}

// Analyzer answers sensor-pair questions from stored readings.
type Analyzer struct {
	source  ReadingSource
	index   SensorIndex
	catalog *Catalog
	opts    AnalyzerOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer. index may be nil, in which case location
// queries are answered from the catalog alone.
func NewAnalyzer(source ReadingSource, index SensorIndex, catalog *Catalog, opts AnalyzerOptions, metrics *observability.Metrics, logger *slog.Logger) *Analyzer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Analyzer{
		source:  source,
		index:   index,
		catalog: catalog,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// PairRequest names the sensor pair and analysis parameters. Empty sensor
// names select the configured defaults.
type PairRequest struct {
	LHTSensor   string
	WS100Sensor string
	Params      domain.AnalysisParams
}

// PairHourlyResult is the flagged hourly series of one sensor pair.
type PairHourlyResult struct {
	LHTSensor   string        `json:"lht_sensor"`
	WS100Sensor string        `json:"ws100_sensor"`
	Hourly      domain.Series `json:"hourly"`
}

// PairDailyResult is one day of a sensor pair with its summary.
type PairDailyResult struct {
	Date        string              `json:"date"`
	LHTSensor   string              `json:"lht_sensor"`
	WS100Sensor string              `json:"ws100_sensor"`
	Summary     domain.DailySummary `json:"summary"`
	Hourly      domain.Series       `json:"hourly"`
}

// EventAggregatesResult describes the events starting on one date.
type EventAggregatesResult struct {
	Date        string                  `json:"date"`
	LHTSensor   string                  `json:"lht_sensor"`
	WS100Sensor string                  `json:"ws100_sensor"`
	PreH        int                     `json:"pre_h"`
	PostH       int                     `json:"post_h"`
	Heatmap     *domain.RHHeatmap       `json:"heatmap"`
	Environment []domain.EnvironmentRow `json:"environment"`
	Fractions   *domain.Fractions       `json:"fractions"`
	Events      []domain.Event          `json:"events"`
	NEventsAll  int                     `json:"n_events_all"`
	NEventsDate int                     `json:"n_events_date"`
}

// EventsResult is the event table and windows for a time range.
type EventsResult struct {
	LHTSensor   string               `json:"lht_sensor"`
	WS100Sensor string               `json:"ws100_sensor"`
	Start       time.Time            `json:"start"`
	End         time.Time            `json:"end"`
	Events      []domain.Event       `json:"events"`
	Windows     []domain.EventWindow `json:"windows"`
	Drying      []domain.DryingTime  `json:"drying"`
}

// Sensors returns the catalog, or when near is set, the sensors within
// radiusKm of the point, nearest first.
func (a *Analyzer) Sensors(ctx context.Context, near *NearQuery) ([]domain.Sensor, error) {
	if near == nil {
		return a.catalog.List(), nil
	}
	if err := near.Validate(); err != nil {
		return nil, err
	}
	if a.index == nil {
		return nil, errors.New("sensor index not configured")
	}
	return a.index.SensorsNear(ctx, near.Lat, near.Lon, near.RadiusKm)
}

// NearQuery selects sensors around a point.
type NearQuery struct {
	Lat, Lon, RadiusKm float64
}

// Validate rejects coordinates outside the globe and non-positive radii.
func (q NearQuery) Validate() error {
	if q.Lat < -90 || q.Lat > 90 || q.Lon < -180 || q.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidRange)
	}
	if q.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive", domain.ErrInvalidRange)
	}
	return nil
}

// PairHourly returns the last maxHours flagged and scored hours of a pair.
func (a *Analyzer) PairHourly(ctx context.Context, req PairRequest, maxHours int) (PairHourlyResult, error) {
	if maxHours < 1 || maxHours > MaxPreviewHours {
		return PairHourlyResult{}, fmt.Errorf("%w: max_hours must be in [1, %d]", domain.ErrInvalidRange, MaxPreviewHours)
	}
	lht, ws, params, err := a.resolve(req)
	if err != nil {
		return PairHourlyResult{}, err
	}
	res := PairHourlyResult{LHTSensor: lht.ID, WS100Sensor: ws.ID, Hourly: domain.Series{}}

	first, last, err := a.source.Bounds(ctx, domain.SourceLHT, lht.ID)
	if errors.Is(err, domain.ErrNoData) {
		return res, nil
	}
	if err != nil {
		return PairHourlyResult{}, err
	}
	to := last.Add(time.Hour)
	from := to.Add(-time.Duration(maxHours+lookbackRows) * time.Hour)
	if from.Before(first) {
		from = first
	}

	s, err := a.loadPair(ctx, lht.ID, ws.ID, from, to)
	if err != nil {
		return PairHourlyResult{}, err
	}
	s = domain.ApplyRisk(domain.ApplyFlags(s, params.Thresholds), params.Location)
	if len(s) > maxHours {
		s = s[len(s)-maxHours:]
	}
	res.Hourly = s
	return res, nil
}

// PairDaily returns one local calendar day of a pair and its summary.
func (a *Analyzer) PairDaily(ctx context.Context, req PairRequest, date string) (PairDailyResult, error) {
	day, err := a.parseDate(date)
	if err != nil {
		return PairDailyResult{}, err
	}
	lht, ws, params, err := a.resolve(req)
	if err != nil {
		return PairDailyResult{}, err
	}
	next := day.AddDate(0, 0, 1)

	s, err := a.loadPair(ctx, lht.ID, ws.ID, day.Add(-lookbackRows*time.Hour), next)
	if err != nil {
		return PairDailyResult{}, err
	}
	s = domain.ApplyRisk(domain.ApplyFlags(s, params.Thresholds), params.Location)
	s = s.Between(day, next)

	return PairDailyResult{
		Date:        date,
		LHTSensor:   lht.ID,
		WS100Sensor: ws.ID,
		Summary:     domain.SummarizeDay(s),
		Hourly:      s,
	}, nil
}

// EventAggregates detects events over the pair's full record and aggregates
// the windows of those starting on date.
func (a *Analyzer) EventAggregates(ctx context.Context, req PairRequest, date string) (EventAggregatesResult, error) {
	if _, err := a.parseDate(date); err != nil {
		return EventAggregatesResult{}, err
	}
	lht, ws, params, err := a.resolve(req)
	if err != nil {
		return EventAggregatesResult{}, err
	}
	if err := params.Validate(); err != nil {
		return EventAggregatesResult{}, err
	}
	res := EventAggregatesResult{
		Date:        date,
		LHTSensor:   lht.ID,
		WS100Sensor: ws.ID,
		PreH:        params.PreH,
		PostH:       params.PostH,
		Events:      []domain.Event{},
	}

	first, last, err := a.source.Bounds(ctx, domain.SourceLHT, lht.ID)
	if errors.Is(err, domain.ErrNoData) {
		return res, nil
	}
	if err != nil {
		return EventAggregatesResult{}, err
	}
	s, err := a.loadPair(ctx, lht.ID, ws.ID, first, last.Add(time.Hour))
	if err != nil {
		return EventAggregatesResult{}, err
	}
	analysis, err := a.analyze(s, params)
	if err != nil {
		return EventAggregatesResult{}, err
	}
	res.NEventsAll = len(analysis.Events)

	var windows []domain.EventWindow
	var drying []domain.DryingTime
	for i, ev := range analysis.Events {
		if ev.StartDate != date {
			continue
		}
		res.Events = append(res.Events, ev)
		windows = append(windows, analysis.Windows[i])
		drying = append(drying, analysis.Drying[i])
	}
	res.NEventsDate = len(res.Events)
	if res.NEventsDate == 0 {
		return res, nil
	}

	res.Environment = domain.AggregateEnvironment(windows)
	fractions := domain.AggregateFractions(windows, drying)
	res.Fractions = &fractions
	heatmap := domain.BuildRHHeatmap(analysis.Series, res.Events, a.opts.Location)
	res.Heatmap = &heatmap
	return res, nil
}

// Events runs the event pipeline over [start, end).
func (a *Analyzer) Events(ctx context.Context, req PairRequest, start, end time.Time) (EventsResult, error) {
	if err := domain.ValidateTimeRange(start, end); err != nil {
		return EventsResult{}, err
	}
	lht, ws, params, err := a.resolve(req)
	if err != nil {
		return EventsResult{}, err
	}
	res := EventsResult{
		LHTSensor:   lht.ID,
		WS100Sensor: ws.ID,
		Start:       start,
		End:         end,
		Events:      []domain.Event{},
		Windows:     []domain.EventWindow{},
		Drying:      []domain.DryingTime{},
	}
	if err := params.Validate(); err != nil {
		return EventsResult{}, err
	}

	s, err := a.loadPair(ctx, lht.ID, ws.ID, start, end)
	if err != nil {
		return EventsResult{}, err
	}
	if len(s) == 0 {
		return res, nil
	}
	analysis, err := a.analyze(s, params)
	if err != nil {
		return EventsResult{}, err
	}
	res.Events = analysis.Events
	res.Windows = analysis.Windows
	res.Drying = analysis.Drying
	return res, nil
}

// CompareSensors runs PairDaily for each WS100 sensor against the same LHT
// sensor concurrently. Results keep the order of ws100Sensors.
func (a *Analyzer) CompareSensors(ctx context.Context, req PairRequest, date string, ws100Sensors []string) ([]PairDailyResult, error) {
	if len(ws100Sensors) == 0 {
		return nil, fmt.Errorf("%w: at least one ws100 sensor is required", domain.ErrInvalidRange)
	}
	out := make([]PairDailyResult, len(ws100Sensors))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ws100Sensors {
		r := req
		r.WS100Sensor = id
		g.Go(func() error {
			res, err := a.PairDaily(gctx, r, date)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analyzer) analyze(s domain.Series, params domain.AnalysisParams) (domain.Analysis, error) {
	analysis, err := domain.Analyze(s, params)
	if err != nil {
		return domain.Analysis{}, err
	}
	a.metrics.EventsDetected.Add(float64(len(analysis.Events)))
	return analysis, nil
}

func (a *Analyzer) resolve(req PairRequest) (domain.Sensor, domain.Sensor, domain.AnalysisParams, error) {
	lhtID, wsID := req.LHTSensor, req.WS100Sensor
	if lhtID == "" {
		lhtID = a.opts.DefaultLHTSensor
	}
	if wsID == "" {
		wsID = a.opts.DefaultWS100Sensor
	}
	lht, ok := a.catalog.Lookup(lhtID, domain.SensorLHT)
	if !ok {
		return domain.Sensor{}, domain.Sensor{}, domain.AnalysisParams{}, fmt.Errorf("%w: LHT %q", ErrUnknownSensor, lhtID)
	}
	ws, ok := a.catalog.Lookup(wsID, domain.SensorWS100)
	if !ok {
		return domain.Sensor{}, domain.Sensor{}, domain.AnalysisParams{}, fmt.Errorf("%w: WS100 %q", ErrUnknownSensor, wsID)
	}

	params := req.Params
	if params.Location == nil {
		params.Location = a.opts.Location
	}
	if err := params.Thresholds.Validate(); err != nil {
		return domain.Sensor{}, domain.Sensor{}, domain.AnalysisParams{}, err
	}
	return lht, ws, params, nil
}

func (a *Analyzer) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, date, a.opts.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", domain.ErrInvalidRange, date)
	}
	return day, nil
}

// loadPair fetches the three source tables concurrently and merges them on
// the LHT hours. Missing WS100 or wind data leaves those fields empty.
func (a *Analyzer) loadPair(ctx context.Context, lhtID, wsID string, from, to time.Time) (domain.Series, error) {
	var lht, ws, wind []domain.SensorReading
	g, gctx := errgroup.WithContext(ctx)
	load := func(dst *[]domain.SensorReading, kind domain.SourceKind, id string) {
		g.Go(func() error {
			rs, err := a.source.Readings(gctx, kind, id, from, to)
			if errors.Is(err, domain.ErrNoData) {
				a.logger.Debug("no readings", "kind", kind, "sensor_id", id, "from", from, "to", to)
				return nil
			}
			if err != nil {
				return err
			}
			*dst = rs
			return nil
		})
	}
	load(&lht, domain.SourceLHT, lhtID)
	load(&ws, domain.SourceWS100, wsID)
	if a.opts.WindStationID != "" {
		load(&wind, domain.SourceWind, a.opts.WindStationID)
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}

	lhtRows := make([]domain.LHTReading, 0, len(lht))
	for _, r := range lht {
		lhtRows = append(lhtRows, r.LHT())
	}
	wsRows := make([]domain.WS100Reading, 0, len(ws))
	for _, r := range ws {
		wsRows = append(wsRows, r.WS100())
	}
	windRows := make([]domain.WindReading, 0, len(wind))
	for _, r := range wind {
		windRows = append(windRows, r.Wind())
	}
	return domain.MergeSources(lhtRows, wsRows, windRows, a.opts.Location), nil
}
