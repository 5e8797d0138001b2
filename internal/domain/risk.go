package domain

import "time"

// Score components.
const (
	scoreRecentWet     = 30
	scoreFreezingBand  = 30
	scoreBlackIce      = 20
	scoreSnowOrMix     = 10
	scoreCommuteHour   = 10
	maxSlipperyScore   = 100
	recentWetLookbackH = 2
)

// RiskInput is what the scorer needs for one hour.
type RiskInput struct {
	TempC     *float64
	RHPct     *float64
	DPSpreadC *float64
	RecentWet bool
	PType     PrecipType
	LocalHour int
}

// FreezingBand reports −4 °C ≤ t ≤ +1 °C.
func FreezingBand(tempC *float64) bool {
	return ge(tempC, -4) && le(tempC, 1)
}

// BlackIceCandidate reports near-saturated, recently wet air in the freezing band.
func BlackIceCandidate(in RiskInput) bool {
	return FreezingBand(in.TempC) && in.RecentWet && ge(in.RHPct, 95) && le(in.DPSpreadC, 1)
}

// IsCommuteHour reports whether a local hour of day falls in the morning
// (05–08) or evening (16–19) commute.
func IsCommuteHour(hour int) bool {
	return (hour >= 5 && hour <= 8) || (hour >= 16 && hour <= 19)
}

// ScoreHour returns the additive slipperiness score, capped at 100.
func ScoreHour(in RiskInput) int {
	score := 0
	if in.RecentWet {
		score += scoreRecentWet
	}
	if FreezingBand(in.TempC) {
		score += scoreFreezingBand
	}
	if BlackIceCandidate(in) {
		score += scoreBlackIce
	}
	if in.PType == PrecipSnow || in.PType == PrecipMix {
		score += scoreSnowOrMix
	}
	if IsCommuteHour(in.LocalHour) {
		score += scoreCommuteHour
	}
	return min(score, maxSlipperyScore)
}

// HourlyRiskLevel labels a single hour's score: ≥70 high, ≥40 medium.
func HourlyRiskLevel(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// BannerRiskLevel labels the maximum score of a 24 h forecast window: ≥80 high,
// ≥40 medium. It is intentionally a different scale from HourlyRiskLevel.
func BannerRiskLevel(maxScore int) RiskLevel {
	switch {
	case maxScore >= 80:
		return RiskHigh
	case maxScore >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ApplyRisk returns a copy of a flagged series with slippery score and level
// set. "Recent wet" looks at the current row and the two rows before it.
// Commute hours are evaluated in loc; a nil loc uses each timestamp's own
// location.
func ApplyRisk(s Series, loc *time.Location) Series {
	out := s.Clone()
	for i := range out {
		recentWet := false
		for j := max(0, i-recentWetLookbackH); j <= i; j++ {
			if out[j].WetOrRain {
				recentWet = true
				break
			}
		}

		ts := out[i].Timestamp
		if loc != nil {
			ts = ts.In(loc)
		}

		score := ScoreHour(RiskInput{
			TempC:     out[i].TempC,
			RHPct:     out[i].RHPct,
			DPSpreadC: out[i].DPSpreadC,
			RecentWet: recentWet,
			PType:     out[i].PType,
			LocalHour: ts.Hour(),
		})
		out[i].SlipperyScore = score
		out[i].SlipperyLevel = HourlyRiskLevel(score)
	}
	return out
}
