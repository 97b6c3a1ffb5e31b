package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotVectorValidate(t *testing.T) {
	assert.NoError(t, make(SlotVector, SlotCount).Validate())
	assert.Error(t, make(SlotVector, 0).Validate())
	assert.Error(t, make(SlotVector, SlotCount-1).Validate())
	assert.Error(t, make(SlotVector, SlotCount+1).Validate())
}

func TestSlotVectorAt(t *testing.T) {
	v := make(SlotVector, SlotCount)
	// Tuesday 09:00 is cell 2*24+9.
	v[2*24+9] = true

	tue9 := time.Date(2026, time.September, 1, 9, 30, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, tue9.Weekday())
	assert.True(t, v.At(tue9))
	assert.False(t, v.At(tue9.Add(time.Hour)))
	assert.False(t, v.At(tue9.Add(24*time.Hour)))
}

func TestSlotVectorHoursByDay(t *testing.T) {
	v := make(SlotVector, SlotCount)
	v[0] = true       // Sunday 00
	v[23] = true      // Sunday 23
	v[1*24+8] = true  // Monday 08
	v[6*24+17] = true // Saturday 17

	byDay := v.HoursByDay()
	assert.Equal(t, []int{0, 23}, byDay[0])
	assert.Equal(t, []int{8}, byDay[1])
	assert.Equal(t, []int{17}, byDay[6])
	for _, day := range []int{2, 3, 4, 5} {
		assert.Empty(t, byDay[day])
	}
}

func TestSlotVectorRoundTrip(t *testing.T) {
	v := make(SlotVector, SlotCount)
	v[42] = true
	v[167] = true

	raw, err := v.Value()
	require.NoError(t, err)

	var out SlotVector
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, v, out)

	// Undersized persisted data must be rejected, not silently padded.
	var bad SlotVector
	assert.Error(t, bad.Scan([]byte(`[true,false]`)))
}

func TestWeeklyScheduleDesiredOn(t *testing.T) {
	v := make(SlotVector, SlotCount)
	v[14] = true // Sunday 14

	sun14 := time.Date(2026, time.August, 30, 14, 5, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, sun14.Weekday())
	sun15 := sun14.Add(time.Hour)

	on := &WeeklySchedule{Mode: WeeklyModeOn, Slots: v}
	assert.True(t, on.DesiredOn(sun14))
	assert.False(t, on.DesiredOn(sun15))

	off := &WeeklySchedule{Mode: WeeklyModeOff, Slots: v}
	assert.False(t, off.DesiredOn(sun14))
	assert.True(t, off.DesiredOn(sun15))
}
