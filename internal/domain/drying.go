package domain

// DryingTime is the drying estimate for one event. Both fields are nil when the
// city dryness criterion is never met inside the window.
type DryingTime struct {
	EventID   int      `json:"event_id"`
	FromStart *float64 `json:"drying_hours_from_start"`
	FromEnd   *float64 `json:"drying_hours_from_end"`
}

// EstimateDrying scans the hours after the event start (rel_hour > 0) and
// returns the first one whose record is city-dry. Placeholder hours never
// count as dry and do not stop the scan.
//
// FromEnd is FromStart minus the event duration. It can be negative when the
// dryness criterion is met before the detector's recorded end; the value is
// kept as is.
func EstimateDrying(w EventWindow, ev Event) DryingTime {
	dt := DryingTime{EventID: ev.ID}
	for _, h := range w.Hours {
		if h.RelHour <= 0 || !h.HasData() || !h.Record.DryEnoughCity {
			continue
		}
		fromStart := float64(h.RelHour)
		dt.FromStart = f64(fromStart)
		dt.FromEnd = f64(fromStart - ev.DurationH)
		break
	}
	return dt
}

// AttachDrying returns a copy of events with drying times filled from the
// window of the same event ID. Events without a window keep nil drying times.
func AttachDrying(events []Event, windows []EventWindow) []Event {
	byID := make(map[int]EventWindow, len(windows))
	for _, w := range windows {
		byID[w.EventID] = w
	}

	out := make([]Event, len(events))
	for i, ev := range events {
		if w, ok := byID[ev.ID]; ok {
			dt := EstimateDrying(w, ev)
			ev.DryingHoursFromStart = dt.FromStart
			ev.DryingHoursFromEnd = dt.FromEnd
		}
		out[i] = ev
	}
	return out
}
