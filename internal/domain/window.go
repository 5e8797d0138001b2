package domain

import "time"

// Default event window lengths in hours.
const (
	DefaultPreH  = 6
	DefaultPostH = 12
)

// BuildWindow lays a complete hourly grid from start−preH to start+postH over
// the series. Hours missing from the series become placeholders with a nil
// Record.
func BuildWindow(s Series, ev Event, preH, postH int) (EventWindow, error) {
	if err := ValidateWindow(preH, postH); err != nil {
		return EventWindow{}, err
	}
	return buildWindow(indexByTime(s), ev, preH, postH), nil
}

// BuildWindows builds one window per event, in event order.
func BuildWindows(s Series, events []Event, preH, postH int) ([]EventWindow, error) {
	if err := ValidateWindow(preH, postH); err != nil {
		return nil, err
	}
	idx := indexByTime(s)
	windows := make([]EventWindow, 0, len(events))
	for _, ev := range events {
		windows = append(windows, buildWindow(idx, ev, preH, postH))
	}
	return windows, nil
}

func buildWindow(idx map[int64]*HourlyRecord, ev Event, preH, postH int) EventWindow {
	w := EventWindow{
		EventID: ev.ID,
		Start:   ev.Start,
		End:     ev.End,
		PreH:    preH,
		PostH:   postH,
		Hours:   make([]WindowHour, 0, preH+postH+1),
	}
	for rel := -preH; rel <= postH; rel++ {
		ts := ev.Start.Add(time.Duration(rel) * time.Hour)
		w.Hours = append(w.Hours, WindowHour{
			RelHour:   rel,
			Timestamp: ts,
			Record:    idx[ts.Unix()],
		})
	}
	return w
}

// indexByTime keys records by Unix second so lookups ignore the location
// attached to each timestamp.
func indexByTime(s Series) map[int64]*HourlyRecord {
	idx := make(map[int64]*HourlyRecord, len(s))
	for i := range s {
		idx[s[i].Timestamp.Unix()] = &s[i]
	}
	return idx
}
