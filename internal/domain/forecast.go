package domain

import (
	"sort"
	"time"
)

// ForecastHour is one hour of a numerical weather forecast for a city zone.
type ForecastHour struct {
	Time               time.Time
	TemperatureC       *float64
	RelativeHumidity   *float64
	DewpointC          *float64
	RainMM             *float64
	SnowfallCM         *float64
	WindSpeedKmh       *float64
	WindDirectionDeg   *float64
	SurfacePressureHPa *float64
}

// ForecastPrecipType derives a precipitation type from forecast rain, snowfall
// and temperature:
//
//	snow > 0 and t ≤ −0.5             Snow
//	rain > 0 and t ≥ 1                Rain
//	rain and snow > 0, or −2 ≤ t ≤ 1  Mix
//	otherwise                         NoData
//
// Dry hours in the −2..1 °C band are labelled Mix; that never raises
// IsRaining because the rain amount stays at zero.
func ForecastPrecipType(rainMM, snowCM, tempC *float64) PrecipType {
	rain, snow := gt(rainMM, 0), gt(snowCM, 0)
	switch {
	case snow && le(tempC, -0.5):
		return PrecipSnow
	case rain && ge(tempC, 1):
		return PrecipRain
	case (rain && snow) || (ge(tempC, -2) && le(tempC, 1)):
		return PrecipMix
	default:
		return PrecipNoData
	}
}

// ForecastToSeries adapts forecast hours to an hourly series in loc. The dew
// point comes from the forecast itself; VPD and absolute humidity are
// computed. Flags and scores are not set.
func ForecastToSeries(hours []ForecastHour, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}
	sorted := append([]ForecastHour(nil), hours...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make(Series, 0, len(sorted))
	for _, h := range sorted {
		rec := HourlyRecord{
			Timestamp:          h.Time.In(loc),
			TempC:              h.TemperatureC,
			RHPct:              h.RelativeHumidity,
			DewpointC:          h.DewpointC,
			RainMMHour:         h.RainMM,
			WindSpeedKmh:       h.WindSpeedKmh,
			WindDirectionDeg:   h.WindDirectionDeg,
			SurfacePressureHPa: h.SurfacePressureHPa,
			PType:              ForecastPrecipType(h.RainMM, h.SnowfallCM, h.TemperatureC),
		}
		if rec.TempC != nil && rec.DewpointC != nil {
			rec.DPSpreadC = finite(*rec.TempC - *rec.DewpointC)
		}
		if rec.TempC != nil && rec.RHPct != nil {
			rec.VPDkPa = finite(VPDkPa(*rec.TempC, *rec.RHPct))
			rec.AbsHumidityGM3 = finite(AbsHumidityGM3(*rec.TempC, *rec.RHPct))
		}
		if n := len(out); n > 0 && !rec.Timestamp.After(out[n-1].Timestamp) {
			out[n-1] = rec
			continue
		}
		out = append(out, rec)
	}
	return out
}
