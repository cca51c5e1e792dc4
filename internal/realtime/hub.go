// Package realtime pushes slot availability changes to websocket clients
// watching a class. The hub is an in-process EventPublisher: after a
// reservation is created or canceled it reloads the slot and sends the
// new view to every subscriber of that class.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/queue"
	"github.com/iliyamo/class-booking/internal/schedule"
)

// UpdateSlotChanged is sent when a seller edits a slot.
const UpdateSlotChanged = "slot.updated"

// SlotReader loads a persisted slot.
type SlotReader interface {
	GetSlot(ctx context.Context, id uint64) (*model.Slot, error)
}

// Update is one message on the wire.
type Update struct {
	Type string            `json:"type"`
	Slot schedule.SlotView `json:"slot"`
}

// Subscriber receives encoded updates for one class. Messages are dropped
// when C is full.
type Subscriber struct {
	C       chan []byte
	classID uint64
}

// Hub tracks subscribers per class.
type Hub struct {
	slots SlotReader

	mu   sync.Mutex
	subs map[uint64]map[*Subscriber]struct{}
}

// NewHub returns an empty hub reading slots from slots.
func NewHub(slots SlotReader) *Hub {
	return &Hub{slots: slots, subs: make(map[uint64]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber for classID.
func (h *Hub) Subscribe(classID uint64) *Subscriber {
	s := &Subscriber{C: make(chan []byte, 16), classID: classID}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[classID] == nil {
		h.subs[classID] = make(map[*Subscriber]struct{})
	}
	h.subs[classID][s] = struct{}{}
	return s
}

// Unsubscribe removes s. It is safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.classID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.classID)
	}
	close(s.C)
}

// Subscribers returns the number of subscribers of a class.
func (h *Hub) Subscribers(classID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[classID])
}

// SlotChanged broadcasts the current view of s.
func (h *Hub) SlotChanged(typ string, s model.Slot) {
	payload, err := json.Marshal(Update{Type: typ, Slot: schedule.View(s)})
	if err != nil {
		log.Printf("realtime: marshal update failed: %v", err)
		return
	}
	h.broadcast(s.ClassID, payload)
}

func (h *Hub) broadcast(classID uint64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[classID] {
		select {
		case s.C <- payload:
		default:
		}
	}
}

func (h *Hub) reload(ctx context.Context, typ queue.EventType, slotID uint64) error {
	slot, err := h.slots.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	h.SlotChanged(string(typ), *slot)
	return nil
}

// ReservationCreated pushes the slot of r to its class.
func (h *Hub) ReservationCreated(ctx context.Context, r *model.Reservation) error {
	return h.reload(ctx, queue.EventReservationCreated, r.SlotID)
}

// ReservationCanceled pushes the slot of r to its class.
func (h *Hub) ReservationCanceled(ctx context.Context, r *model.Reservation) error {
	return h.reload(ctx, queue.EventReservationCanceled, r.SlotID)
}

// ReconciliationTask is not relevant to clients.
func (h *Hub) ReconciliationTask(context.Context, queue.ReconciliationTask) error { return nil }
