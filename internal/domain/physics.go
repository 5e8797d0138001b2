package domain

import "math"

// absHumidityFactor is 1000 / R_v with R_v = 461.5 J/(kg·K) for water vapour.
const absHumidityFactor = 2.16679

// DewpointC returns the dew point (°C) using the Sonntag form of the Magnus
// approximation. Coefficients switch to the over-ice pair below 0 °C. RH is
// clamped to [1e-6, 100] so that 0 % does not hit log(0).
func DewpointC(tempC, rhPct float64) float64 {
	b, c := 17.625, 243.04
	if tempC < 0 {
		b, c = 22.46, 272.62
	}
	rh := clamp(rhPct, 1e-6, 100)
	gamma := math.Log(rh/100) + b*tempC/(c+tempC)
	return c * gamma / (b - gamma)
}

// SVPkPa returns the saturation vapour pressure (kPa) from the Tetens formula,
// over liquid water at or above 0 °C and over ice below.
func SVPkPa(tempC float64) float64 {
	if tempC >= 0 {
		return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	}
	return 0.6108 * math.Exp(21.87*tempC/(tempC+265.5))
}

// VPDkPa returns the vapour-pressure deficit (kPa).
func VPDkPa(tempC, rhPct float64) float64 {
	return SVPkPa(tempC) * (1 - rhPct/100)
}

// AbsHumidityGM3 returns absolute humidity (g/m³) from the ideal gas law.
func AbsHumidityGM3(tempC, rhPct float64) float64 {
	vaporPa := clamp(rhPct, 0, 100) / 100 * SVPkPa(tempC) * 1000
	return absHumidityFactor * vaporPa / (tempC + 273.15)
}

// clamp keeps NaN as NaN.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(math.Max(v, lo), hi)
}

// Enrich fills the derived humidity fields of rec from temperature and RH.
// A missing input or a non-finite result leaves the derived field nil.
func Enrich(rec HourlyRecord) HourlyRecord {
	if rec.TempC == nil || rec.RHPct == nil {
		rec.DewpointC, rec.DPSpreadC, rec.VPDkPa, rec.AbsHumidityGM3 = nil, nil, nil, nil
		return rec
	}
	t, rh := *rec.TempC, *rec.RHPct
	rec.DewpointC = finite(DewpointC(t, rh))
	if rec.DewpointC != nil {
		rec.DPSpreadC = finite(t - *rec.DewpointC)
	} else {
		rec.DPSpreadC = nil
	}
	rec.VPDkPa = finite(VPDkPa(t, rh))
	rec.AbsHumidityGM3 = finite(AbsHumidityGM3(t, rh))
	return rec
}

// EnrichSeries applies Enrich to a copy of every record.
func EnrichSeries(s Series) Series {
	out := s.Clone()
	for i := range out {
		out[i] = Enrich(out[i])
	}
	return out
}

// finite returns nil for NaN and ±Inf.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
