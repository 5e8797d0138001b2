package http

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/service"
)

const (
	defaultMaxHours     = 168
	defaultForecastDays = 10
	defaultRadiusKm     = 10.0
)

func (s *Server) handleSensors(r *http.Request) (any, error) {
	q := r.URL.Query()
	if q.Get("lat") == "" && q.Get("lon") == "" {
		return s.analyzer.Sensors(r.Context(), nil)
	}
	lat, err := floatParam(q, "lat", 0)
	if err != nil {
		return nil, err
	}
	lon, err := floatParam(q, "lon", 0)
	if err != nil {
		return nil, err
	}
	radius, err := floatParam(q, "radius_km", defaultRadiusKm)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Sensors(r.Context(), &service.NearQuery{Lat: lat, Lon: lon, RadiusKm: radius})
}

func (s *Server) handlePairHourly(r *http.Request) (any, error) {
	req, err := pairRequest(r.URL.Query())
	if err != nil {
		return nil, err
	}
	maxHours, err := intParam(r.URL.Query(), "max_hours", defaultMaxHours)
	if err != nil {
		return nil, err
	}
	return s.analyzer.PairHourly(r.Context(), req, maxHours)
}

func (s *Server) handlePairDaily(r *http.Request) (any, error) {
	req, err := pairRequest(r.URL.Query())
	if err != nil {
		return nil, err
	}
	date, err := requiredParam(r.URL.Query(), "date")
	if err != nil {
		return nil, err
	}
	return s.analyzer.PairDaily(r.Context(), req, date)
}

func (s *Server) handleEventAggregates(r *http.Request) (any, error) {
	req, err := pairRequest(r.URL.Query())
	if err != nil {
		return nil, err
	}
	date, err := requiredParam(r.URL.Query(), "date")
	if err != nil {
		return nil, err
	}
	return s.analyzer.EventAggregates(r.Context(), req, date)
}

func (s *Server) handleEvents(r *http.Request) (any, error) {
	q := r.URL.Query()
	req, err := pairRequest(q)
	if err != nil {
		return nil, err
	}
	start, err := timeParam(q, "start")
	if err != nil {
		return nil, err
	}
	end, err := timeParam(q, "end")
	if err != nil {
		return nil, err
	}
	return s.analyzer.Events(r.Context(), req, start, end)
}

func (s *Server) handleCompare(r *http.Request) (any, error) {
	q := r.URL.Query()
	req, err := pairRequest(q)
	if err != nil {
		return nil, err
	}
	date, err := requiredParam(q, "date")
	if err != nil {
		return nil, err
	}
	raw, err := requiredParam(q, "ws100_sensors")
	if err != nil {
		return nil, err
	}
	var sensors []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			sensors = append(sensors, id)
		}
	}
	return s.analyzer.CompareSensors(r.Context(), req, date, sensors)
}

func (s *Server) handleCityRoadForecast(r *http.Request) (any, error) {
	days, err := intParam(r.URL.Query(), "forecast_days", defaultForecastDays)
	if err != nil {
		return nil, err
	}
	return s.forecaster.CityRoadForecast(r.Context(), days)
}

type dewpointResponse struct {
	Input struct {
		TempC float64 `json:"temp_c"`
		RH    float64 `json:"rh"`
	} `json:"input"`
	DewpointC *float64 `json:"dewpoint_C"`
}

func (s *Server) handleDewpoint(r *http.Request) (any, error) {
	q := r.URL.Query()
	t, err := floatParam(q, "temp_c", 0)
	if err != nil {
		return nil, err
	}
	rh, err := floatParam(q, "rh", 100)
	if err != nil {
		return nil, err
	}
	if rh < 0 || rh > 100 {
		return nil, fmt.Errorf("%w: rh must be within 0..100", domain.ErrInvalidRange)
	}
	var resp dewpointResponse
	resp.Input.TempC = t
	resp.Input.RH = rh
	// Near absolute zero the Magnus formula is undefined; report null.
	if dp := domain.DewpointC(t, rh); !math.IsNaN(dp) && !math.IsInf(dp, 0) {
		resp.DewpointC = &dp
	}
	return resp, nil
}

// pairRequest binds sensor names, threshold overrides and event parameters.
func pairRequest(q url.Values) (service.PairRequest, error) {
	params := domain.DefaultAnalysisParams()

	var overrides domain.ThresholdOverrides
	for name, slot := range overrides.Fields() {
		if !q.Has(name) {
			continue
		}
		v, err := floatParam(q, name, 0)
		if err != nil {
			return service.PairRequest{}, err
		}
		*slot = &v
	}
	params.Thresholds = params.Thresholds.Apply(overrides)

	var err error
	if params.Detect.MaxGapHours, err = intParam(q, "max_gap_hours", params.Detect.MaxGapHours); err != nil {
		return service.PairRequest{}, err
	}
	if params.PreH, err = intParam(q, "pre_h", params.PreH); err != nil {
		return service.PairRequest{}, err
	}
	if params.PostH, err = intParam(q, "post_h", params.PostH); err != nil {
		return service.PairRequest{}, err
	}

	return service.PairRequest{
		LHTSensor:   q.Get("lht_sensor"),
		WS100Sensor: q.Get("ws100_sensor"),
		Params:      params,
	}, nil
}

func requiredParam(q url.Values, name string) (string, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidRange, name)
	}
	return v, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRange, name)
	}
	return v, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", domain.ErrInvalidRange, name)
	}
	return v, nil
}

// timeParam accepts RFC 3339 timestamps or bare dates (midnight UTC).
func timeParam(q url.Values, name string) (time.Time, error) {
	raw, err := requiredParam(q, name)
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", domain.ErrInvalidRange, name)
}
