package model

import (
	"fmt"
	"time"
)

// LocalTime is a wall-clock start time within a day.
type LocalTime struct {
	Hour   int
	Minute int
}

// Valid reports whether the hour and minute are in range.
func (t LocalTime) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String renders the time as HH:MM.
func (t LocalTime) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On returns the instant at this wall-clock time on the given date, in the
// date's location.
func (t LocalTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

// ScheduleDefinition is the validated weekly recurring pattern: weekday to
// ordered list of session start times.
type ScheduleDefinition map[time.Weekday][]LocalTime
