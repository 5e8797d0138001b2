package domain

import (
	"fmt"
	"math"
)

// Thresholds holds the calibration constants for the wet/dry flags.
// It is a value type: copies never alias, so differently calibrated requests
// cannot interfere with each other.
type Thresholds struct {
	RainEventMMH float64 `json:"rain_event_mm_h"`

	LeafWetRHPct        float64 `json:"leaf_wet_rh_pct"`
	LeafWetDPSpreadMaxC float64 `json:"leaf_wet_dp_spread_max_C"`

	StrictRainMaxMMH   float64 `json:"strict_rain_max_mm_h"`
	StrictRHMaxPct     float64 `json:"strict_rh_max_pct"`
	StrictDPSpreadMinC float64 `json:"strict_dp_spread_min_C"`
	StrictVPDMinKPa    float64 `json:"strict_vpd_min_kpa"`
	StrictWindMinKmh   float64 `json:"strict_wind_min_kmh"`

	CityRainMaxMMH   float64 `json:"city_rain_max_mm_h"`
	CityRHMaxPct     float64 `json:"city_rh_max_pct"`
	CityDPSpreadMinC float64 `json:"city_dp_spread_min_C"`
	CityVPDMinKPa    float64 `json:"city_vpd_min_kpa"`
	CityWindMinKmh   float64 `json:"city_wind_min_kmh"`
}

var defaultThresholds = Thresholds{
	RainEventMMH: 0.2,

	LeafWetRHPct:        90,
	LeafWetDPSpreadMaxC: 2.0,

	StrictRainMaxMMH:   0.0,
	StrictRHMaxPct:     75,
	StrictDPSpreadMinC: 2.0,
	StrictVPDMinKPa:    0.6,
	StrictWindMinKmh:   2.0,

	CityRainMaxMMH:   0.02,
	CityRHMaxPct:     88,
	CityDPSpreadMinC: 1.0,
	CityVPDMinKPa:    0.3,
	CityWindMinKmh:   1.0,
}

// DefaultThresholds returns the default calibration by value.
func DefaultThresholds() Thresholds {
	return defaultThresholds
}

// ThresholdOption overrides one field of a Thresholds copy.
type ThresholdOption func(*Thresholds)

// With returns a copy of t with the options applied. t itself is unchanged.
func (t Thresholds) With(opts ...ThresholdOption) Thresholds {
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// WithRainEventMMH sets the rain rate an hour must exceed to count as raining.
func WithRainEventMMH(v float64) ThresholdOption {
	return func(t *Thresholds) { t.RainEventMMH = v }
}

// WithLeafWetness sets the RH floor and dewpoint-spread ceiling for leaf wetness.
func WithLeafWetness(rhPct, dpSpreadMaxC float64) ThresholdOption {
	return func(t *Thresholds) {
		t.LeafWetRHPct = rhPct
		t.LeafWetDPSpreadMaxC = dpSpreadMaxC
	}
}

// WithStrict sets the rural drying regime.
func WithStrict(rainMaxMMH, rhMaxPct, dpSpreadMinC, vpdMinKPa, windMinKmh float64) ThresholdOption {
	return func(t *Thresholds) {
		t.StrictRainMaxMMH = rainMaxMMH
		t.StrictRHMaxPct = rhMaxPct
		t.StrictDPSpreadMinC = dpSpreadMinC
		t.StrictVPDMinKPa = vpdMinKPa
		t.StrictWindMinKmh = windMinKmh
	}
}

// WithCity sets the urban drying regime.
func WithCity(rainMaxMMH, rhMaxPct, dpSpreadMinC, vpdMinKPa, windMinKmh float64) ThresholdOption {
	return func(t *Thresholds) {
		t.CityRainMaxMMH = rainMaxMMH
		t.CityRHMaxPct = rhMaxPct
		t.CityDPSpreadMinC = dpSpreadMinC
		t.CityVPDMinKPa = vpdMinKPa
		t.CityWindMinKmh = windMinKmh
	}
}

// ThresholdOverrides carries optional per-request overrides. Nil fields keep
// the base value.
type ThresholdOverrides struct {
	RainEventMMH *float64 `json:"rain_event_mm_h,omitempty"`

	LeafWetRHPct        *float64 `json:"leaf_wet_rh_pct,omitempty"`
	LeafWetDPSpreadMaxC *float64 `json:"leaf_wet_dp_spread_max_C,omitempty"`

	StrictRainMaxMMH   *float64 `json:"strict_rain_max_mm_h,omitempty"`
	StrictRHMaxPct     *float64 `json:"strict_rh_max_pct,omitempty"`
	StrictDPSpreadMinC *float64 `json:"strict_dp_spread_min_C,omitempty"`
	StrictVPDMinKPa    *float64 `json:"strict_vpd_min_kpa,omitempty"`
	StrictWindMinKmh   *float64 `json:"strict_wind_min_kmh,omitempty"`

	CityRainMaxMMH   *float64 `json:"city_rain_max_mm_h,omitempty"`
	CityRHMaxPct     *float64 `json:"city_rh_max_pct,omitempty"`
	CityDPSpreadMinC *float64 `json:"city_dp_spread_min_C,omitempty"`
	CityVPDMinKPa    *float64 `json:"city_vpd_min_kpa,omitempty"`
	CityWindMinKmh   *float64 `json:"city_wind_min_kmh,omitempty"`
}

// Fields maps the external parameter names to the override slots. The HTTP
// adapter and the analyze command use it to bind query parameters and flags.
func (o *ThresholdOverrides) Fields() map[string]**float64 {
	return map[string]**float64{
		"rain_event_mm_h":          &o.RainEventMMH,
		"leaf_wet_rh_pct":          &o.LeafWetRHPct,
		"leaf_wet_dp_spread_max_C": &o.LeafWetDPSpreadMaxC,
		"strict_rain_max_mm_h":     &o.StrictRainMaxMMH,
		"strict_rh_max_pct":        &o.StrictRHMaxPct,
		"strict_dp_spread_min_C":   &o.StrictDPSpreadMinC,
		"strict_vpd_min_kpa":       &o.StrictVPDMinKPa,
		"strict_wind_min_kmh":      &o.StrictWindMinKmh,
		"city_rain_max_mm_h":       &o.CityRainMaxMMH,
		"city_rh_max_pct":          &o.CityRHMaxPct,
		"city_dp_spread_min_C":     &o.CityDPSpreadMinC,
		"city_vpd_min_kpa":         &o.CityVPDMinKPa,
		"city_wind_min_kmh":        &o.CityWindMinKmh,
	}
}

// Apply returns a copy of t with every non-nil override set.
func (t Thresholds) Apply(o ThresholdOverrides) Thresholds {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&t.RainEventMMH, o.RainEventMMH)
	set(&t.LeafWetRHPct, o.LeafWetRHPct)
	set(&t.LeafWetDPSpreadMaxC, o.LeafWetDPSpreadMaxC)
	set(&t.StrictRainMaxMMH, o.StrictRainMaxMMH)
	set(&t.StrictRHMaxPct, o.StrictRHMaxPct)
	set(&t.StrictDPSpreadMinC, o.StrictDPSpreadMinC)
	set(&t.StrictVPDMinKPa, o.StrictVPDMinKPa)
	set(&t.StrictWindMinKmh, o.StrictWindMinKmh)
	set(&t.CityRainMaxMMH, o.CityRainMaxMMH)
	set(&t.CityRHMaxPct, o.CityRHMaxPct)
	set(&t.CityDPSpreadMinC, o.CityDPSpreadMinC)
	set(&t.CityVPDMinKPa, o.CityVPDMinKPa)
	set(&t.CityWindMinKmh, o.CityWindMinKmh)
	return t
}

// Validate rejects non-finite values, negative amounts and humidity limits
// outside 0..100. Dew-point spreads may be negative.
func (t Thresholds) Validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"rain_event_mm_h", t.RainEventMMH},
		{"strict_rain_max_mm_h", t.StrictRainMaxMMH},
		{"strict_vpd_min_kpa", t.StrictVPDMinKPa},
		{"strict_wind_min_kmh", t.StrictWindMinKmh},
		{"city_rain_max_mm_h", t.CityRainMaxMMH},
		{"city_vpd_min_kpa", t.CityVPDMinKPa},
		{"city_wind_min_kmh", t.CityWindMinKmh},
	}
	for _, f := range nonNegative {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidRange, f.name)
		}
	}

	percents := []struct {
		name string
		v    float64
	}{
		{"leaf_wet_rh_pct", t.LeafWetRHPct},
		{"strict_rh_max_pct", t.StrictRHMaxPct},
		{"city_rh_max_pct", t.CityRHMaxPct},
	}
	for _, f := range percents {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 100 {
			return fmt.Errorf("%w: %s must be within 0..100", ErrInvalidRange, f.name)
		}
	}

	spreads := []struct {
		name string
		v    float64
	}{
		{"leaf_wet_dp_spread_max_C", t.LeafWetDPSpreadMaxC},
		{"strict_dp_spread_min_C", t.StrictDPSpreadMinC},
		{"city_dp_spread_min_C", t.CityDPSpreadMinC},
	}
	for _, f := range spreads {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidRange, f.name)
		}
	}
	return nil
}
