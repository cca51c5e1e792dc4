package model

import (
	"strconv"
	"time"
)

// Slot is a single bookable session of a class. A slot is either persisted
// (ID > 0, created by the seller or by batch materialization) or virtual
// (ID == 0) when it was computed from the class schedule and has no row yet.
// Virtual slots carry a deterministic VirtualKey instead of an ID.
//
// Fields:
//
//	ID                 – primary key identifier, 0 for virtual slots.
//	VirtualKey         – classId-weekday-HHMM-YYYYMMDD for virtual slots.
//	ClassID            – class the slot belongs to.
//	StartAt            – session start.
//	EndAt              – session end (StartAt + 60 minutes for generated slots).
//	Capacity           – number of seats.
//	CurrentReservation – seats taken, never above Capacity.
//	IsOpen             – seller switch; a closed slot cannot be booked.
//	CreatedAt          – creation timestamp, zero for virtual slots.
type Slot struct {
	ID                 uint64    // class_slots.id
	VirtualKey         string    // not persisted
	ClassID            uint64    // class_slots.class_id
	StartAt            time.Time // class_slots.start_at
	EndAt              time.Time // class_slots.end_at
	Capacity           int       // class_slots.capacity
	CurrentReservation int       // class_slots.current_reservation
	IsOpen             bool      // class_slots.is_open
	CreatedAt          time.Time // class_slots.created_at
}

// Persisted reports whether the slot is backed by a stored record.
func (s Slot) Persisted() bool { return s.ID != 0 }

// Key returns the persisted ID as text, or the virtual key.
func (s Slot) Key() string {
	if s.ID != 0 {
		return strconv.FormatUint(s.ID, 10)
	}
	return s.VirtualKey
}
