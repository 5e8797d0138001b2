package domain

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// EnvironmentRow holds per-rel_hour means across all event windows. A mean is
// nil when no window had a value at that offset.
type EnvironmentRow struct {
	RelHour                int      `json:"rel_hour"`
	RHMean                 *float64 `json:"rh_mean"`
	DPSpreadMean           *float64 `json:"dp_spread_mean"`
	VPDMean                *float64 `json:"vpd_mean"`
	WindMean               *float64 `json:"wind_mean"`
	WindDirectionDegMean   *float64 `json:"wind_direction_deg_mean"`
	WindGustsKmhMean       *float64 `json:"wind_gusts_kmh_mean"`
	SurfacePressureHPaMean *float64 `json:"surface_pressure_hpa_mean"`
}

// FractionRow holds the share of events that were wet or city-dry at a
// rel_hour, over windows with data at that offset.
type FractionRow struct {
	RelHour int     `json:"rel_hour"`
	WetFrac float64 `json:"wet_frac"`
	DryFrac float64 `json:"dry_frac"`
}

// DryingStats summarizes drying times across events.
type DryingStats struct {
	MedianDryingHFromStart *float64 `json:"median_drying_h_from_start"`
	MedianDryingHFromEnd   *float64 `json:"median_drying_h_from_end"`
}

// Fractions is the result of AggregateFractions.
type Fractions struct {
	Records []FractionRow `json:"records"`
	DryingStats
}

// AggregateEnvironment averages the environment fields by rel_hour.
func AggregateEnvironment(windows []EventWindow) []EnvironmentRow {
	type acc struct {
		rh, spread, vpd, wind, dir, gusts, pressure []float64
	}
	byRel := make(map[int]*acc)
	for _, w := range windows {
		for _, h := range w.Hours {
			a, ok := byRel[h.RelHour]
			if !ok {
				a = &acc{}
				byRel[h.RelHour] = a
			}
			if !h.HasData() {
				continue
			}
			r := h.Record
			a.rh = appendKnown(a.rh, r.RHPct)
			a.spread = appendKnown(a.spread, r.DPSpreadC)
			a.vpd = appendKnown(a.vpd, r.VPDkPa)
			a.wind = appendKnown(a.wind, r.WindSpeedKmh)
			a.dir = appendKnown(a.dir, r.WindDirectionDeg)
			a.gusts = appendKnown(a.gusts, r.WindGustsKmh)
			a.pressure = appendKnown(a.pressure, r.SurfacePressureHPa)
		}
	}

	rows := make([]EnvironmentRow, 0, len(byRel))
	for _, rel := range sortedKeys(byRel) {
		a := byRel[rel]
		rows = append(rows, EnvironmentRow{
			RelHour:                rel,
			RHMean:                 mean(a.rh),
			DPSpreadMean:           mean(a.spread),
			VPDMean:                mean(a.vpd),
			WindMean:               mean(a.wind),
			WindDirectionDegMean:   mean(a.dir),
			WindGustsKmhMean:       mean(a.gusts),
			SurfacePressureHPaMean: mean(a.pressure),
		})
	}
	return rows
}

// AggregateFractions computes wet/dry fractions by rel_hour and the median
// drying times of the given per-event estimates. Offsets where no window had
// data report 0 for both fractions.
func AggregateFractions(windows []EventWindow, drying []DryingTime) Fractions {
	type acc struct{ n, wet, dry int }
	byRel := make(map[int]*acc)
	for _, w := range windows {
		for _, h := range w.Hours {
			a, ok := byRel[h.RelHour]
			if !ok {
				a = &acc{}
				byRel[h.RelHour] = a
			}
			if !h.HasData() {
				continue
			}
			a.n++
			if h.Record.WetOrRain {
				a.wet++
			}
			if h.Record.DryEnoughCity {
				a.dry++
			}
		}
	}

	records := make([]FractionRow, 0, len(byRel))
	for _, rel := range sortedKeys(byRel) {
		a := byRel[rel]
		row := FractionRow{RelHour: rel}
		if a.n > 0 {
			row.WetFrac = float64(a.wet) / float64(a.n)
			row.DryFrac = float64(a.dry) / float64(a.n)
		}
		records = append(records, row)
	}

	var fromStart, fromEnd []float64
	for _, d := range drying {
		fromStart = appendKnown(fromStart, d.FromStart)
		fromEnd = appendKnown(fromEnd, d.FromEnd)
	}

	return Fractions{
		Records: records,
		DryingStats: DryingStats{
			MedianDryingHFromStart: median(fromStart),
			MedianDryingHFromEnd:   median(fromEnd),
		},
	}
}

// RHHeatmap is mean relative humidity by event date and hour of day.
type RHHeatmap struct {
	Dates    []string     `json:"dates"`
	Hours    []int        `json:"hours"`
	RHMatrix [][]*float64 `json:"rh_matrix"`
}

// BuildRHHeatmap averages RH per hour of day (0–23, in loc) for every distinct
// event start date, in event order.
func BuildRHHeatmap(s Series, events []Event, loc *time.Location) RHHeatmap {
	if loc == nil {
		loc = time.UTC
	}
	hm := RHHeatmap{Dates: make([]string, 0), Hours: make([]int, 24), RHMatrix: make([][]*float64, 0)}
	for h := range hm.Hours {
		hm.Hours[h] = h
	}

	seen := make(map[string]bool)
	for _, ev := range events {
		if !seen[ev.StartDate] {
			seen[ev.StartDate] = true
			hm.Dates = append(hm.Dates, ev.StartDate)
		}
	}

	values := make(map[string]*[24][]float64, len(hm.Dates))
	for _, d := range hm.Dates {
		values[d] = &[24][]float64{}
	}
	for _, rec := range s {
		ts := rec.Timestamp.In(loc)
		cells, ok := values[ts.Format(time.DateOnly)]
		if !ok {
			continue
		}
		cells[ts.Hour()] = appendKnown(cells[ts.Hour()], rec.RHPct)
	}

	for _, d := range hm.Dates {
		row := make([]*float64, 24)
		for h := range row {
			row[h] = mean(values[d][h])
		}
		hm.RHMatrix = append(hm.RHMatrix, row)
	}
	return hm
}

func appendKnown(xs []float64, v *float64) []float64 {
	if v == nil {
		return xs
	}
	return append(xs, *v)
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	return f64(stat.Mean(xs, nil))
}

// median averages the two middle values for even-length input.
func median(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return f64(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	}
	return f64(stat.Mean(sorted[n/2-1:n/2+1], nil))
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
