package domain

import "time"

// Forecast event windows look far enough ahead to cover a ten-day forecast.
const (
	ForecastWindowPreH  = 0
	ForecastWindowPostH = 240
)

// ForecastHourRisk is the compact hourly view of a road forecast.
type ForecastHourRisk struct {
	Timestamp     time.Time `json:"timestamp"`
	TempC         *float64  `json:"temp_C"`
	SlipperyScore int       `json:"slippery_score"`
	SlipperyLevel RiskLevel `json:"slippery_level"`
}

// RiskPeriod is a contiguous run of high-risk hours.
type RiskPeriod struct {
	Start     time.Time `json:"start_ts"`
	End       time.Time `json:"end_ts"`
	DurationH float64   `json:"duration_h"`
	MaxScore  int       `json:"max_score"`
}

// RoadForecastStats are the 24 h and 72 h headline numbers.
type RoadForecastStats struct {
	HighRiskHours24h    int          `json:"high_risk_hours_24h"`
	HighRiskHours72h    int          `json:"high_risk_hours_72h"`
	MaxSlipperyScore24h int          `json:"max_slippery_score_24h"`
	RiskLevel24h        RiskLevel    `json:"risk_level_24h"`
	TotalEvents72h      int          `json:"total_events_72h"`
	HighRiskPeriods24h  []RiskPeriod `json:"high_risk_periods_24h"`
	HighRiskPeriods72h  []RiskPeriod `json:"high_risk_periods_72h"`
}

// RoadForecast is the city-zone road condition summary.
type RoadForecast struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Hourly      []ForecastHourRisk `json:"hourly"`
	Events      []Event            `json:"events"`
	Stats       RoadForecastStats  `json:"stats"`
}

// AnalyzeForecast runs the core on forecast hours: adaptation, flags, risk,
// event detection and drying estimation over a 0/240 h window.
func AnalyzeForecast(hours []ForecastHour, th Thresholds, loc *time.Location) (RoadForecast, error) {
	if err := th.Validate(); err != nil {
		return RoadForecast{}, err
	}
	s := ApplyRisk(ApplyFlags(ForecastToSeries(hours, loc), th), loc)
	events := DetectEvents(s, DefaultDetectOptions())
	windows, err := BuildWindows(s, events, ForecastWindowPreH, ForecastWindowPostH)
	if err != nil {
		return RoadForecast{}, err
	}
	return BuildRoadForecast(s, AttachDrying(events, windows)), nil
}

// BuildRoadForecast summarizes a scored series. The 24 h and 72 h horizons
// start at the first forecast hour.
func BuildRoadForecast(s Series, events []Event) RoadForecast {
	rf := RoadForecast{
		GeneratedAt: clock.Now().UTC(),
		Hourly:      make([]ForecastHourRisk, 0, len(s)),
		Events:      events,
		Stats: RoadForecastStats{
			RiskLevel24h:       RiskLow,
			HighRiskPeriods24h: make([]RiskPeriod, 0),
			HighRiskPeriods72h: make([]RiskPeriod, 0),
		},
	}
	if rf.Events == nil {
		rf.Events = make([]Event, 0)
	}
	if len(s) == 0 {
		return rf
	}

	h24 := s[0].Timestamp.Add(24 * time.Hour)
	h72 := s[0].Timestamp.Add(72 * time.Hour)
	for _, rec := range s {
		rf.Hourly = append(rf.Hourly, ForecastHourRisk{
			Timestamp:     rec.Timestamp,
			TempC:         rec.TempC,
			SlipperyScore: rec.SlipperyScore,
			SlipperyLevel: rec.SlipperyLevel,
		})
		high := rec.SlipperyLevel == RiskHigh
		if rec.Timestamp.Before(h24) {
			rf.Stats.MaxSlipperyScore24h = max(rf.Stats.MaxSlipperyScore24h, rec.SlipperyScore)
			if high {
				rf.Stats.HighRiskHours24h++
			}
		}
		if rec.Timestamp.Before(h72) && high {
			rf.Stats.HighRiskHours72h++
		}
	}
	rf.Stats.RiskLevel24h = BannerRiskLevel(rf.Stats.MaxSlipperyScore24h)

	for _, ev := range events {
		if ev.Start.Before(h72) {
			rf.Stats.TotalEvents72h++
		}
	}

	rf.Stats.HighRiskPeriods24h = HighRiskPeriods(s, h24)
	rf.Stats.HighRiskPeriods72h = HighRiskPeriods(s, h72)
	return rf
}

// HighRiskPeriods groups high-level hours before end into contiguous periods.
// A gap of more than one hour between high hours starts a new period.
func HighRiskPeriods(s Series, end time.Time) []RiskPeriod {
	periods := make([]RiskPeriod, 0)
	var cur *RiskPeriod
	var last time.Time
	for _, rec := range s {
		if !rec.Timestamp.Before(end) || rec.SlipperyLevel != RiskHigh {
			continue
		}
		if cur != nil && rec.Timestamp.Sub(last) > time.Hour {
			periods = append(periods, *cur)
			cur = nil
		}
		if cur == nil {
			cur = &RiskPeriod{Start: rec.Timestamp}
		}
		cur.End = rec.Timestamp
		cur.DurationH++
		cur.MaxScore = max(cur.MaxScore, rec.SlipperyScore)
		last = rec.Timestamp
	}
	if cur != nil {
		periods = append(periods, *cur)
	}
	return periods
}

// ZoneForecast is a road forecast published for one forecast zone.
type ZoneForecast struct {
	ID           string  `json:"id"`
	Zone         string  `json:"zone"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ForecastDays int     `json:"forecast_days"`
	RoadForecast
}
