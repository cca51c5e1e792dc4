package schedule

import (
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// minuteKey is the reconciliation match key: the start instant truncated to
// the minute. Comparing in UTC makes slots generated in a local zone match
// rows read back from the database in UTC.
func minuteKey(t time.Time) int64 {
	return t.UTC().Truncate(time.Minute).Unix()
}

// Reconcile overlays persisted slot records onto generated virtual slots.
// A persisted record matches a virtual slot when both start in the same
// minute; end time and capacity are not part of the key. A matched slot
// takes the record's ID, CurrentReservation, IsOpen, CreatedAt and Capacity
// because the record is authoritative; unmatched slots are returned
// unchanged. The inputs are not modified and the function is idempotent.
func Reconcile(virtual, persisted []model.Slot) []model.Slot {
	byStart := make(map[int64]model.Slot, len(persisted))
	for _, p := range persisted {
		k := minuteKey(p.StartAt)
		if _, dup := byStart[k]; !dup {
			byStart[k] = p
		}
	}
	out := make([]model.Slot, len(virtual))
	for i, v := range virtual {
		if p, ok := byStart[minuteKey(v.StartAt)]; ok {
			v.ID = p.ID
			v.VirtualKey = ""
			v.CurrentReservation = p.CurrentReservation
			v.IsOpen = p.IsOpen
			v.CreatedAt = p.CreatedAt
			v.Capacity = p.Capacity
		}
		out[i] = v
	}
	return out
}

// Orphans returns persisted records that no virtual slot starts with, such
// as single sessions a seller created outside the recurring schedule.
func Orphans(virtual, persisted []model.Slot) []model.Slot {
	starts := make(map[int64]bool, len(virtual))
	for _, v := range virtual {
		starts[minuteKey(v.StartAt)] = true
	}
	var out []model.Slot
	for _, p := range persisted {
		if !starts[minuteKey(p.StartAt)] {
			out = append(out, p)
		}
	}
	return out
}

// Unpersisted returns the virtual slots that have no persisted record yet.
func Unpersisted(virtual, persisted []model.Slot) []model.Slot {
	var out []model.Slot
	for _, s := range Reconcile(virtual, persisted) {
		if !s.Persisted() {
			out = append(out, s)
		}
	}
	return out
}
