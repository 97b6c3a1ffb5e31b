package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SlotCount is the number of hour cells in a weekly plan: 7 days * 24 hours.
const SlotCount = 168

// WeeklyMode controls how set bits in a plan are interpreted: "on" means a
// set bit requests power ON during that hour, "off" means a set bit
// requests power OFF (the unset bits are then the on-window).
type WeeklyMode string

const (
	WeeklyModeOn  WeeklyMode = "on"
	WeeklyModeOff WeeklyMode = "off"
)

// ValidWeeklyMode reports whether m is a known plan mode.
func ValidWeeklyMode(m WeeklyMode) bool {
	return m == WeeklyModeOn || m == WeeklyModeOff
}

// SlotVector is a fixed 168-cell bit vector indexed dayOfWeek*24 + hour,
// with day 0 = Sunday. It round-trips through the database as a JSON
// array so the persisted shape matches the wire shape exactly.
type SlotVector []bool

// Validate enforces the fixed length.
func (v SlotVector) Validate() error {
	if len(v) != SlotCount {
		return fmt.Errorf("slots must contain exactly %d entries, got %d", SlotCount, len(v))
	}
	return nil
}

// At returns the bit for the given instant in t's location.
func (v SlotVector) At(t time.Time) bool {
	idx := int(t.Weekday())*24 + t.Hour()
	if idx < 0 || idx >= len(v) {
		return false
	}
	return v[idx]
}

// HoursByDay derives the per-day hour lists used for presentation. The
// result is a pure function of the vector: index 0 is Sunday, each inner
// slice lists the set hours in ascending order.
func (v SlotVector) HoursByDay() [7][]int {
	var out [7][]int
	for i, set := range v {
		if i >= SlotCount {
			break
		}
		if set {
			day := i / 24
			out[day] = append(out[day], i%24)
		}
	}
	return out
}

// Value implements driver.Valuer.
func (v SlotVector) Value() (driver.Value, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner.
func (v *SlotVector) Scan(src any) error {
	var raw []byte
	switch val := src.(type) {
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("slots: unsupported column type %T", src)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return v.Validate()
}

// WeeklySchedule is one recurring on/off plan per user, replaced wholesale
// on every upsert and never partially patched.
type WeeklySchedule struct {
	UserID    string     `gorm:"primaryKey;size:64" json:"userId"`
	Mode      WeeklyMode `gorm:"size:8;not null" json:"mode"`
	Slots     SlotVector `gorm:"type:text;not null" json:"slots"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"not null" json:"updatedAt"`
}

// DesiredOn resolves the plan against an instant: whether the unit should
// be powered on during the hour containing t.
func (w *WeeklySchedule) DesiredOn(t time.Time) bool {
	set := w.Slots.At(t)
	if w.Mode == WeeklyModeOff {
		return !set
	}
	return set
}
