package domain

import (
	"fmt"
	"time"
)

// PrecipType is the hourly precipitation type bucket.
type PrecipType string

const (
	PrecipDry    PrecipType = "Dry"
	PrecipRain   PrecipType = "Rain"
	PrecipMix    PrecipType = "Mix"
	PrecipSnow   PrecipType = "Snow"
	PrecipOther  PrecipType = "Other"
	PrecipNoData PrecipType = "NoData"
)

// IsPrecipitating reports whether the type describes falling precipitation.
func (p PrecipType) IsPrecipitating() bool {
	return p == PrecipRain || p == PrecipMix || p == PrecipSnow
}

// RiskLevel labels a slipperiness score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// EventIntensity buckets an event's total precipitation.
type EventIntensity string

const (
	IntensityLight    EventIntensity = "light"
	IntensityModerate EventIntensity = "moderate"
	IntensityHeavy    EventIntensity = "heavy"
	IntensityExtreme  EventIntensity = "extreme"
	IntensityUnknown  EventIntensity = "unknown"
)

// HourlyRecord is one merged and enriched sensor hour.
type HourlyRecord struct {
	Timestamp time.Time `json:"timestamp"`

	TempC          *float64 `json:"temp_C"`
	RHPct          *float64 `json:"rh_pct"`
	DewpointC      *float64 `json:"dewpoint_C"`
	DPSpreadC      *float64 `json:"dp_spread_C"`
	VPDkPa         *float64 `json:"vpd_kpa"`
	AbsHumidityGM3 *float64 `json:"abs_humidity_gm3"`

	RainMMHour *float64   `json:"rain_mm_hour"`
	PType      PrecipType `json:"ptype_hour"`

	WindSpeedKmh       *float64 `json:"wind_speed_kmh"`
	WindGustsKmh       *float64 `json:"wind_gusts_kmh"`
	WindDirectionDeg   *float64 `json:"wind_direction_deg"`
	SurfacePressureHPa *float64 `json:"surface_pressure_hpa"`

	Flags

	SlipperyScore int       `json:"slippery_score"`
	SlipperyLevel RiskLevel `json:"slippery_level,omitempty"`
}

// Flags are the boolean environmental states derived for one hour.
type Flags struct {
	IsRaining       bool `json:"is_raining"`
	LeafWetness     bool `json:"leaf_wetness"`
	WetOrRain       bool `json:"wet_or_rain"`
	DryEnoughStrict bool `json:"dry_enough_strict"`
	DryEnoughCity   bool `json:"dry_enough_city"`
}

// Series is a time-ordered sequence of hourly records with unique timestamps.
type Series []HourlyRecord

// Clone returns a copy of the series. Pointer fields are shared; records are
// treated as immutable once built.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Between returns the records with from <= timestamp < to.
func (s Series) Between(from, to time.Time) Series {
	out := make(Series, 0)
	for _, rec := range s {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(to) {
			out = append(out, rec)
		}
	}
	return out
}

// ValidateSeries reports the first ordering violation: timestamps must be
// strictly increasing.
func ValidateSeries(s Series) error {
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			return fmt.Errorf("series not strictly increasing at index %d: %s after %s",
				i, s[i].Timestamp.Format(time.RFC3339), s[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Event is a run of rainy hours grouped with gap tolerance.
type Event struct {
	ID                   int            `json:"event_id"`
	Start                time.Time      `json:"start_ts"`
	End                  time.Time      `json:"end_ts"`
	StartDate            string         `json:"start_date"`
	DurationH            float64        `json:"duration_h"`
	MMTotal              float64        `json:"mm_total"`
	PTypeMain            PrecipType     `json:"ptype_main"`
	Intensity            EventIntensity `json:"event_intensity"`
	DryingHoursFromStart *float64       `json:"drying_hours_from_start"`
	DryingHoursFromEnd   *float64       `json:"drying_hours_from_end"`
}

// EventWindow is a complete hourly grid around an event start.
type EventWindow struct {
	EventID int          `json:"event_id"`
	Start   time.Time    `json:"start_ts"`
	End     time.Time    `json:"end_ts"`
	PreH    int          `json:"pre_h"`
	PostH   int          `json:"post_h"`
	Hours   []WindowHour `json:"hours"`
}

// WindowHour is one grid slot. Record is nil when the series has no row for
// that hour; such a slot is "no data", never "dry".
type WindowHour struct {
	RelHour   int           `json:"rel_hour"`
	Timestamp time.Time     `json:"timestamp"`
	Record    *HourlyRecord `json:"record"`
}

// HasData reports whether the slot is backed by a real record.
func (h WindowHour) HasData() bool { return h.Record != nil }

// f64 returns a pointer to v.
func f64(v float64) *float64 { return &v }
