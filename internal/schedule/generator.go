package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// SlotDuration is the fixed length of a generated session.
const SlotDuration = 60 * time.Minute

// ClassRef carries the class attributes slot generation needs.
type ClassRef struct {
	ID       uint64
	Capacity int
}

// VirtualKey builds the deterministic identifier of a not yet persisted slot.
func VirtualKey(classID uint64, start time.Time) string {
	return fmt.Sprintf("%d-%s-%02d%02d-%s", classID, DayName(start.Weekday()), start.Hour(), start.Minute(), start.Format("20060102"))
}

// Generate produces the virtual slots of one date. Every entry whose token
// matches the date's weekday contributes one slot per start time, so the
// result holds exactly one slot per (matching entry, time) pair. Slots start
// on the date at the given wall-clock time in date's location and last
// SlotDuration. A nil definition or a weekday without entries yields none.
func Generate(date time.Time, def *Definition, cls ClassRef) []model.Slot {
	if def == nil {
		return nil
	}
	day := date.Weekday()
	var out []model.Slot
	for _, e := range def.Entries {
		if !MatchesDay(e.Token, day) {
			continue
		}
		for _, t := range e.Times {
			start := t.On(date)
			out = append(out, model.Slot{
				VirtualKey: VirtualKey(cls.ID, start),
				ClassID:    cls.ID,
				StartAt:    start,
				EndAt:      start.Add(SlotDuration),
				Capacity:   cls.Capacity,
				IsOpen:     true,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

// GenerateRange generates slots for every calendar day from..to inclusive.
func GenerateRange(from, to time.Time, def *Definition, cls ClassRef) []model.Slot {
	if def == nil {
		return nil
	}
	var out []model.Slot
	first := DayStart(from)
	last := DayStart(to)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, Generate(d, def, cls)...)
	}
	return out
}

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
