package types

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight,
// independent of any date or zone.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses a "HH:MM" string into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day: %s", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// IsValid checks that the value falls within a single day
func (t TimeOfDay) IsValid() bool {
	return t >= 0 && t < 24*60
}

// Hour returns the hour component (0-23)
func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

// Minute returns the minute component (0-59)
func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// String returns the "HH:MM" representation
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors the time of day to the date of ref in the given location.
// time.Date normalizes the result, which keeps DST transitions correct.
func (t TimeOfDay) On(ref time.Time, loc *time.Location) time.Time {
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// MinutesOf returns the TimeOfDay of the given instant in its own location
func MinutesOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}
