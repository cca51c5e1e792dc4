package schedule

import (
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// Availability is the bookable state of a slot.
type Availability string

const (
	Open Availability = "OPEN"
	Full Availability = "FULL"
)

// Remaining is capacity minus current reservations. It can be negative if a
// seller lowered capacity under existing bookings.
func Remaining(s model.Slot) int {
	return s.Capacity - s.CurrentReservation
}

// State is FULL when no seat remains or the seller closed the slot.
func State(s model.Slot) Availability {
	if Remaining(s) <= 0 || !s.IsOpen {
		return Full
	}
	return Open
}

// Bookable reports whether the slot is in the OPEN state.
func Bookable(s model.Slot) bool { return State(s) == Open }

// SlotView is the response shape of a slot with its availability.
type SlotView struct {
	ID                 uint64       `json:"id,omitempty"`
	Key                string       `json:"key"`
	ClassID            uint64       `json:"class_id"`
	StartAt            time.Time    `json:"start_at"`
	EndAt              time.Time    `json:"end_at"`
	Capacity           int          `json:"capacity"`
	CurrentReservation int          `json:"current_reservation"`
	Remaining          int          `json:"remaining"`
	State              Availability `json:"state"`
	Closed             bool         `json:"closed"`
	Virtual            bool         `json:"virtual"`
}

// View derives the availability view of a slot. Remaining is floored at 0
// for display.
func View(s model.Slot) SlotView {
	remaining := Remaining(s)
	if remaining < 0 {
		remaining = 0
	}
	return SlotView{
		ID:                 s.ID,
		Key:                s.Key(),
		ClassID:            s.ClassID,
		StartAt:            s.StartAt,
		EndAt:              s.EndAt,
		Capacity:           s.Capacity,
		CurrentReservation: s.CurrentReservation,
		Remaining:          remaining,
		State:              State(s),
		Closed:             !s.IsOpen,
		Virtual:            !s.Persisted(),
	}
}

// Views maps View over a list of slots.
func Views(slots []model.Slot) []SlotView {
	out := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, View(s))
	}
	return out
}
