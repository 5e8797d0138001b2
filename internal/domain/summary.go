package domain

// DailySummary holds per-day statistics of a flagged series. Statistics are
// nil when the day has no rows or no known values.
type DailySummary struct {
	Rows           int      `json:"rows"`
	TMean          *float64 `json:"T_mean"`
	TMin           *float64 `json:"T_min"`
	TMax           *float64 `json:"T_max"`
	RHMean         *float64 `json:"RH_mean"`
	RHMin          *float64 `json:"RH_min"`
	RHMax          *float64 `json:"RH_max"`
	RainTotalMM    *float64 `json:"rain_total_mm"`
	RainHours      *int     `json:"rain_hours"`
	WetHours       *int     `json:"wet_hours"`
	DryCityHours   *int     `json:"dry_city_hours"`
	DryStrictHours *int     `json:"dry_strict_hours"`
}

// SummarizeDay computes a DailySummary over s.
func SummarizeDay(s Series) DailySummary {
	if len(s) == 0 {
		return DailySummary{}
	}

	var temps, rhs []float64
	var rainTotal float64
	var rainHours, wetHours, dryCity, dryStrict int
	for _, rec := range s {
		temps = appendKnown(temps, rec.TempC)
		rhs = appendKnown(rhs, rec.RHPct)
		if rec.RainMMHour != nil {
			rainTotal += *rec.RainMMHour
			if *rec.RainMMHour > 0 {
				rainHours++
			}
		}
		if rec.WetOrRain {
			wetHours++
		}
		if rec.DryEnoughCity {
			dryCity++
		}
		if rec.DryEnoughStrict {
			dryStrict++
		}
	}

	tMin, tMax := minMax(temps)
	rhMin, rhMax := minMax(rhs)
	return DailySummary{
		Rows:           len(s),
		TMean:          mean(temps),
		TMin:           tMin,
		TMax:           tMax,
		RHMean:         mean(rhs),
		RHMin:          rhMin,
		RHMax:          rhMax,
		RainTotalMM:    f64(rainTotal),
		RainHours:      &rainHours,
		WetHours:       &wetHours,
		DryCityHours:   &dryCity,
		DryStrictHours: &dryStrict,
	}
}

func minMax(xs []float64) (*float64, *float64) {
	if len(xs) == 0 {
		return nil, nil
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return f64(lo), f64(hi)
}
