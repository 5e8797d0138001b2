package domain

import (
	"sort"
	"time"
)

// SourceKind identifies which source table a reading belongs to.
type SourceKind string

const (
	SourceLHT   SourceKind = "lht"
	SourceWS100 SourceKind = "ws100"
	SourceWind  SourceKind = "wind"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k == SourceLHT || k == SourceWS100 || k == SourceWind
}

// SensorReading is one hourly row from any source table, as ingested.
// Only the fields of its Kind are meaningful.
type SensorReading struct {
	Kind      SourceKind `json:"kind"`
	SensorID  string     `json:"sensor_id"`
	Timestamp time.Time  `json:"timestamp"`

	TempC *float64 `json:"temp_C,omitempty"`
	RHPct *float64 `json:"rh_pct,omitempty"`

	RainMMHour *float64   `json:"rain_mm_hour,omitempty"`
	PrecipCode *int       `json:"precip_code,omitempty"`
	PType      PrecipType `json:"ptype_hour,omitempty"`

	WindSpeedKmh       *float64 `json:"wind_speed_kmh,omitempty"`
	WindGustsKmh       *float64 `json:"wind_gusts_kmh,omitempty"`
	WindDirectionDeg   *float64 `json:"wind_direction_deg,omitempty"`
	SurfacePressureHPa *float64 `json:"surface_pressure_hpa,omitempty"`
}

// LHTReading is an hourly temperature/humidity row.
type LHTReading struct {
	Timestamp time.Time
	TempC     *float64
	RHPct     *float64
}

// WS100Reading is an hourly precipitation row.
type WS100Reading struct {
	Timestamp  time.Time
	RainMMHour *float64
	PType      PrecipType
}

// WindReading is an hourly wind/pressure row.
type WindReading struct {
	Timestamp          time.Time
	WindSpeedKmh       *float64
	WindGustsKmh       *float64
	WindDirectionDeg   *float64
	SurfacePressureHPa *float64
}

// LHT projects the reading onto the LHT table.
func (r SensorReading) LHT() LHTReading {
	return LHTReading{Timestamp: r.Timestamp, TempC: r.TempC, RHPct: r.RHPct}
}

// WS100 projects the reading onto the WS100 table. An explicit type wins over
// the raw code.
func (r SensorReading) WS100() WS100Reading {
	ptype := r.PType
	if ptype == "" {
		ptype = BucketPrecipCode(r.PrecipCode)
	}
	return WS100Reading{Timestamp: r.Timestamp, RainMMHour: r.RainMMHour, PType: ptype}
}

// Wind projects the reading onto the wind table.
func (r SensorReading) Wind() WindReading {
	return WindReading{
		Timestamp:          r.Timestamp,
		WindSpeedKmh:       r.WindSpeedKmh,
		WindGustsKmh:       r.WindGustsKmh,
		WindDirectionDeg:   r.WindDirectionDeg,
		SurfacePressureHPa: r.SurfacePressureHPa,
	}
}

// maxInterpolationGap is the longest run of missing LHT values filled by
// linear interpolation.
const maxInterpolationGap = 3

// MergeSources joins the three hourly tables on the LHT hours. Timestamps are
// truncated to the hour and moved to loc; duplicate hours keep the last row.
// Hours without a WS100 row get nil rain and NoData type; hours without wind
// get nil wind fields. Short temperature/humidity gaps are interpolated before
// the physics enrichment. Flags and scores are not computed here.
func MergeSources(lht []LHTReading, ws []WS100Reading, wind []WindReading, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}
	hour := func(t time.Time) time.Time { return t.In(loc).Truncate(time.Hour) }

	lhtByHour := make(map[int64]LHTReading, len(lht))
	for _, r := range lht {
		r.Timestamp = hour(r.Timestamp)
		lhtByHour[r.Timestamp.Unix()] = r
	}
	wsByHour := make(map[int64]WS100Reading, len(ws))
	for _, r := range ws {
		wsByHour[hour(r.Timestamp).Unix()] = r
	}
	windByHour := make(map[int64]WindReading, len(wind))
	for _, r := range wind {
		windByHour[hour(r.Timestamp).Unix()] = r
	}

	keys := make([]int64, 0, len(lhtByHour))
	for k := range lhtByHour {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(Series, 0, len(keys))
	for _, k := range keys {
		l := lhtByHour[k]
		rec := HourlyRecord{
			Timestamp: l.Timestamp,
			TempC:     l.TempC,
			RHPct:     l.RHPct,
			PType:     PrecipNoData,
		}
		if w, ok := wsByHour[k]; ok {
			rec.RainMMHour = w.RainMMHour
			if w.PType != "" {
				rec.PType = w.PType
			}
		}
		if w, ok := windByHour[k]; ok {
			rec.WindSpeedKmh = w.WindSpeedKmh
			rec.WindGustsKmh = w.WindGustsKmh
			rec.WindDirectionDeg = w.WindDirectionDeg
			rec.SurfacePressureHPa = w.SurfacePressureHPa
		}
		out = append(out, rec)
	}

	interpolate(out, func(r *HourlyRecord) **float64 { return &r.TempC })
	interpolate(out, func(r *HourlyRecord) **float64 { return &r.RHPct })

	return EnrichSeries(out)
}

// interpolate fills runs of at most maxInterpolationGap nil values that sit
// between two known values, weighting by elapsed time. Leading and trailing
// gaps stay nil.
func interpolate(s Series, field func(*HourlyRecord) **float64) {
	last := -1
	for i := range s {
		if *field(&s[i]) == nil {
			continue
		}
		if last >= 0 && i-last > 1 && i-last-1 <= maxInterpolationGap {
			v0, v1 := **field(&s[last]), **field(&s[i])
			t0, t1 := s[last].Timestamp, s[i].Timestamp
			span := t1.Sub(t0).Seconds()
			for j := last + 1; j < i; j++ {
				frac := s[j].Timestamp.Sub(t0).Seconds() / span
				*field(&s[j]) = f64(v0 + (v1-v0)*frac)
			}
		}
		last = i
	}
}
