package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/queue"
	"github.com/iliyamo/class-booking/internal/schedule"
	"github.com/iliyamo/class-booking/internal/store/memstore"
)

func newSlot(t *testing.T, st *memstore.Store) model.Slot {
	t.Helper()
	start := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	s := &model.Slot{ClassID: 3, StartAt: start, EndAt: start.Add(time.Hour), Capacity: 2, CurrentReservation: 1, IsOpen: true}
	if err := st.CreateSlot(context.Background(), s); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	return *s
}

func TestHub_BroadcastPerClass(t *testing.T) {
	st := memstore.New()
	slot := newSlot(t, st)
	h := NewHub(st)

	mine := h.Subscribe(3)
	other := h.Subscribe(4)
	defer h.Unsubscribe(other)

	if err := h.ReservationCreated(context.Background(), &model.Reservation{SlotID: slot.ID, ClassID: 3}); err != nil {
		t.Fatalf("ReservationCreated: %v", err)
	}
	select {
	case msg := <-mine.C:
		var u Update
		if err := json.Unmarshal(msg, &u); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if u.Type != string(queue.EventReservationCreated) || u.Slot.ID != slot.ID || u.Slot.Remaining != 1 {
			t.Errorf("update = %+v, want created for slot %d with remaining 1", u, slot.ID)
		}
	default:
		t.Fatal("subscriber of class 3 got no update")
	}
	select {
	case msg := <-other.C:
		t.Errorf("subscriber of class 4 got %s", msg)
	default:
	}

	h.Unsubscribe(mine)
	h.Unsubscribe(mine)
	if n := h.Subscribers(3); n != 0 {
		t.Errorf("Subscribers(3) = %d, want 0", n)
	}
}

func TestHub_UnknownSlot(t *testing.T) {
	h := NewHub(memstore.New())
	if err := h.ReservationCanceled(context.Background(), &model.Reservation{SlotID: 99}); err == nil {
		t.Errorf("ReservationCanceled(unknown slot) = nil, want error")
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(memstore.New())
	sub := h.Subscribe(1)
	defer h.Unsubscribe(sub)
	s := model.Slot{ID: 1, ClassID: 1, Capacity: 1, IsOpen: true}
	for i := 0; i < cap(sub.C)+5; i++ {
		h.SlotChanged(UpdateSlotChanged, s)
	}
	if len(sub.C) != cap(sub.C) {
		t.Errorf("buffered = %d, want %d", len(sub.C), cap(sub.C))
	}
}

func TestServe_StreamsUpdates(t *testing.T) {
	st := memstore.New()
	slot := newSlot(t, st)
	h := NewHub(st)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, 3)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(3) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	slot.IsOpen = false
	h.SlotChanged(UpdateSlotChanged, slot)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read: %v", err)
	}
	if u.Type != UpdateSlotChanged || u.Slot.State != schedule.Full || !u.Slot.Closed {
		t.Errorf("update = %+v, want closed FULL slot", u)
	}
}
