package domain

import "time"

var testBase = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func hourAt(i int) time.Time { return testBase.Add(time.Duration(i) * time.Hour) }

// rainyHour is a wet, precipitating hour.
func rainyHour(i int, mm float64, p PrecipType) HourlyRecord {
	return HourlyRecord{
		Timestamp:    hourAt(i),
		TempC:        ptr(5),
		RHPct:        ptr(95),
		RainMMHour:   ptr(mm),
		PType:        p,
		WindSpeedKmh: ptr(1),
	}
}

// dryHour passes both the strict and the city dryness criteria.
func dryHour(i int) HourlyRecord {
	return HourlyRecord{
		Timestamp:    hourAt(i),
		TempC:        ptr(15),
		RHPct:        ptr(50),
		RainMMHour:   ptr(0),
		PType:        PrecipDry,
		WindSpeedKmh: ptr(3),
	}
}

// flagged enriches and flags records with default thresholds.
func flagged(recs ...HourlyRecord) Series {
	return ApplyFlags(EnrichSeries(Series(recs)), DefaultThresholds())
}

// rainAt builds hours 0..n-1 that are rainy at the given indexes and dry
// elsewhere.
func rainAt(n int, rainy ...int) Series {
	wet := make(map[int]bool, len(rainy))
	for _, i := range rainy {
		wet[i] = true
	}
	recs := make([]HourlyRecord, 0, n)
	for i := range n {
		if wet[i] {
			recs = append(recs, rainyHour(i, 1.0, PrecipRain))
		} else {
			recs = append(recs, dryHour(i))
		}
	}
	return flagged(recs...)
}
