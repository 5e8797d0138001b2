package domain

import "time"

// AnalysisParams are the per-request knobs of the event pipeline.
type AnalysisParams struct {
	Thresholds Thresholds
	Detect     DetectOptions
	PreH       int
	PostH      int
	// Location is used for commute hours. Nil keeps each timestamp's own zone.
	Location *time.Location
}

// DefaultAnalysisParams returns default thresholds, a 4 h gap and a 6/12 h
// window.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		Thresholds: DefaultThresholds(),
		Detect:     DefaultDetectOptions(),
		PreH:       DefaultPreH,
		PostH:      DefaultPostH,
	}
}

// Validate checks every parameter before any computation starts.
func (p AnalysisParams) Validate() error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if err := p.Detect.Validate(); err != nil {
		return err
	}
	return ValidateWindow(p.PreH, p.PostH)
}

// Analysis is the output of Analyze.
type Analysis struct {
	Series  Series        `json:"series"`
	Events  []Event       `json:"events"`
	Windows []EventWindow `json:"windows"`
	Drying  []DryingTime  `json:"drying"`
}

// Analyze runs flags, risk, event detection, windows and drying over an
// enriched series. The input is not modified.
func Analyze(s Series, p AnalysisParams) (Analysis, error) {
	if err := p.Validate(); err != nil {
		return Analysis{}, err
	}
	if err := ValidateSeries(s); err != nil {
		return Analysis{}, err
	}

	flagged := ApplyRisk(ApplyFlags(s, p.Thresholds), p.Location)
	events := DetectEvents(flagged, p.Detect)
	windows, err := BuildWindows(flagged, events, p.PreH, p.PostH)
	if err != nil {
		return Analysis{}, err
	}

	drying := make([]DryingTime, 0, len(events))
	for i, ev := range events {
		drying = append(drying, EstimateDrying(windows[i], ev))
	}

	return Analysis{
		Series:  flagged,
		Events:  AttachDrying(events, windows),
		Windows: windows,
		Drying:  drying,
	}, nil
}
