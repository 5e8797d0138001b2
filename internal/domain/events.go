package domain

import (
	"fmt"
	"math"
	"time"
)

// DefaultMaxGapHours is the largest gap between two rainy hours that still
// keeps them in one event.
const DefaultMaxGapHours = 4

// DetectOptions configures event grouping.
type DetectOptions struct {
	MaxGapHours int
}

// DefaultDetectOptions returns the default grouping parameters.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{MaxGapHours: DefaultMaxGapHours}
}

// Validate rejects a negative gap tolerance.
func (o DetectOptions) Validate() error {
	if o.MaxGapHours < 0 {
		return fmt.Errorf("%w: max_gap_hours must be non-negative (got %d)", ErrInvalidRange, o.MaxGapHours)
	}
	return nil
}

type detectorState int

const (
	outsideEvent detectorState = iota
	inEvent
)

// openEvent accumulates the rainy hours of the event being scanned.
type openEvent struct {
	start    time.Time
	lastRain time.Time
	mmTotal  float64
	ptypes   []PrecipType
}

func (e *openEvent) add(rec HourlyRecord) {
	e.lastRain = rec.Timestamp
	if rec.RainMMHour != nil {
		e.mmTotal += *rec.RainMMHour
	}
	e.ptypes = append(e.ptypes, rec.PType)
}

// DetectEvents groups hours flagged IsRaining into precipitation events. The
// series must carry flags (see ApplyFlags) and be ordered by time. A rainy hour
// within MaxGapHours of the previous rainy hour joins the current event; the
// gap is measured on timestamps so missing rows in the series do not shrink it.
func DetectEvents(s Series, opts DetectOptions) []Event {
	maxGap := time.Duration(opts.MaxGapHours) * time.Hour
	events := make([]Event, 0)

	state := outsideEvent
	var cur openEvent

	for _, rec := range s {
		if !rec.IsRaining {
			continue
		}
		switch state {
		case outsideEvent:
			cur = openEvent{start: rec.Timestamp}
			cur.add(rec)
			state = inEvent
		case inEvent:
			if rec.Timestamp.Sub(cur.lastRain) <= maxGap {
				cur.add(rec)
				continue
			}
			events = append(events, closeEvent(len(events)+1, cur))
			cur = openEvent{start: rec.Timestamp}
			cur.add(rec)
		}
	}
	if state == inEvent {
		events = append(events, closeEvent(len(events)+1, cur))
	}
	return events
}

func closeEvent(id int, e openEvent) Event {
	return Event{
		ID:        id,
		Start:     e.start,
		End:       e.lastRain,
		StartDate: e.start.Format(time.DateOnly),
		DurationH: e.lastRain.Sub(e.start).Hours() + 1,
		MMTotal:   e.mmTotal,
		PTypeMain: modePrecipType(e.ptypes),
		Intensity: ClassifyEventIntensity(e.mmTotal),
	}
}

// modePrecipType returns the most frequent non-Dry type, ties going to the
// type seen first. With no candidates it returns NoData.
func modePrecipType(types []PrecipType) PrecipType {
	counts := make(map[PrecipType]int, len(types))
	order := make([]PrecipType, 0, len(types))
	for _, t := range types {
		if t == PrecipDry {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	best := PrecipNoData
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}

// ClassifyEventIntensity buckets an event total (mm). Each boundary belongs to
// the upper class: 5.0 is moderate, 20.0 heavy, 40.0 extreme.
func ClassifyEventIntensity(mm float64) EventIntensity {
	switch {
	case math.IsNaN(mm):
		return IntensityUnknown
	case mm < 5:
		return IntensityLight
	case mm < 20:
		return IntensityModerate
	case mm < 40:
		return IntensityHeavy
	default:
		return IntensityExtreme
	}
}
