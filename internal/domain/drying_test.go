package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowOf(hours map[int]*HourlyRecord, from, to int) EventWindow {
	w := EventWindow{EventID: 1}
	for rel := from; rel <= to; rel++ {
		w.Hours = append(w.Hours, WindowHour{RelHour: rel, Timestamp: hourAt(rel), Record: hours[rel]})
	}
	return w
}

func cityDry() *HourlyRecord {
	return &HourlyRecord{Flags: Flags{DryEnoughCity: true}}
}

func wet() *HourlyRecord {
	return &HourlyRecord{Flags: Flags{WetOrRain: true}}
}

func TestEstimateDrying(t *testing.T) {
	ev := Event{ID: 1, DurationH: 2}

	t.Run("first dry hour after start", func(t *testing.T) {
		w := windowOf(map[int]*HourlyRecord{-1: cityDry(), 0: wet(), 1: wet(), 2: wet(), 3: cityDry(), 4: cityDry()}, -1, 6)
		dt := EstimateDrying(w, ev)

		require.NotNil(t, dt.FromStart)
		require.NotNil(t, dt.FromEnd)
		assert.Equal(t, 3.0, *dt.FromStart)
		assert.Equal(t, 1.0, *dt.FromEnd)
	})

	t.Run("dry at the start hour does not count", func(t *testing.T) {
		w := windowOf(map[int]*HourlyRecord{0: cityDry(), 1: wet()}, 0, 1)
		dt := EstimateDrying(w, ev)

		assert.Nil(t, dt.FromStart)
		assert.Nil(t, dt.FromEnd)
	})

	t.Run("missing hours are not dry", func(t *testing.T) {
		w := windowOf(map[int]*HourlyRecord{0: wet(), 5: cityDry()}, 0, 6)
		dt := EstimateDrying(w, ev)

		require.NotNil(t, dt.FromStart)
		assert.Equal(t, 5.0, *dt.FromStart)
	})

	t.Run("never dry", func(t *testing.T) {
		w := windowOf(map[int]*HourlyRecord{0: wet(), 1: wet(), 2: wet()}, 0, 12)
		dt := EstimateDrying(w, ev)

		assert.Equal(t, 1, dt.EventID)
		assert.Nil(t, dt.FromStart)
		assert.Nil(t, dt.FromEnd)
	})

	t.Run("drying before recorded end is negative from end", func(t *testing.T) {
		long := Event{ID: 1, DurationH: 5}
		w := windowOf(map[int]*HourlyRecord{2: cityDry()}, 0, 6)
		dt := EstimateDrying(w, long)

		require.NotNil(t, dt.FromEnd)
		assert.Equal(t, -3.0, *dt.FromEnd)
	})
}

func TestAttachDrying(t *testing.T) {
	events := []Event{{ID: 1, DurationH: 1}, {ID: 2, DurationH: 1}}
	windows := []EventWindow{windowOf(map[int]*HourlyRecord{2: cityDry()}, 0, 4)}

	out := AttachDrying(events, windows)

	require.Len(t, out, 2)
	require.NotNil(t, out[0].DryingHoursFromStart)
	assert.Equal(t, 2.0, *out[0].DryingHoursFromStart)
	assert.Equal(t, 1.0, *out[0].DryingHoursFromEnd)
	assert.Nil(t, out[1].DryingHoursFromStart)
	assert.Nil(t, events[0].DryingHoursFromStart, "input must not change")
}
