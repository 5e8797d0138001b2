package domain

// ComputeFlags derives the five wet/dry states for one record. Each comparison
// reading a nil field is false, so an hour with unknown humidity can be neither
// leaf-wet nor dry.
func ComputeFlags(rec HourlyRecord, th Thresholds) Flags {
	var f Flags

	f.IsRaining = gt(rec.RainMMHour, th.RainEventMMH) && rec.PType.IsPrecipitating()
	f.LeafWetness = ge(rec.RHPct, th.LeafWetRHPct) && le(rec.DPSpreadC, th.LeafWetDPSpreadMaxC)
	f.WetOrRain = f.IsRaining || f.LeafWetness

	f.DryEnoughStrict = le(rec.RainMMHour, th.StrictRainMaxMMH) &&
		le(rec.RHPct, th.StrictRHMaxPct) &&
		ge(rec.DPSpreadC, th.StrictDPSpreadMinC) &&
		ge(rec.VPDkPa, th.StrictVPDMinKPa) &&
		ge(rec.WindSpeedKmh, th.StrictWindMinKmh)

	f.DryEnoughCity = le(rec.RainMMHour, th.CityRainMaxMMH) &&
		le(rec.RHPct, th.CityRHMaxPct) &&
		ge(rec.DPSpreadC, th.CityDPSpreadMinC) &&
		ge(rec.VPDkPa, th.CityVPDMinKPa) &&
		ge(rec.WindSpeedKmh, th.CityWindMinKmh)

	return f
}

// ApplyFlags returns a copy of s with flags computed for every hour.
func ApplyFlags(s Series, th Thresholds) Series {
	out := s.Clone()
	for i := range out {
		out[i].Flags = ComputeFlags(out[i], th)
	}
	return out
}

// gt, ge and le compare an optional value against a threshold; unknown
// values never satisfy a comparison.

func gt(v *float64, th float64) bool { return v != nil && *v > th }
func ge(v *float64, th float64) bool { return v != nil && *v >= th }
func le(v *float64, th float64) bool { return v != nil && *v <= th }
