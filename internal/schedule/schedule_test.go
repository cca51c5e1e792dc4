package schedule

import (
	"reflect"
	"testing"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustParse(t *testing.T, raw string) *Definition {
	t.Helper()
	def := ParseJSON([]byte(raw))
	if def == nil {
		t.Fatalf("ParseJSON(%s) = nil", raw)
	}
	return def
}

func TestGenerate_SingleSession(t *testing.T) {
	def := mustParse(t, `{"monday":"10:00"}`)
	slots := Generate(monday, def, ClassRef{ID: 7, Capacity: 10})
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	s := slots[0]
	wantStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !s.StartAt.Equal(wantStart) || !s.EndAt.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("slot = %v..%v, want %v..%v", s.StartAt, s.EndAt, wantStart, wantStart.Add(time.Hour))
	}
	if s.Capacity != 10 || s.CurrentReservation != 0 || !s.IsOpen || s.Persisted() {
		t.Errorf("slot = %+v, want capacity 10, empty, open, virtual", s)
	}
	if s.VirtualKey != "7-monday-1000-20240101" {
		t.Errorf("VirtualKey = %q, want %q", s.VirtualKey, "7-monday-1000-20240101")
	}
}

func TestGenerate_OnePerEntryAndTime(t *testing.T) {
	def := mustParse(t, `{"mon/wed":"09:00, 18:30","weekdays":["07:00"]}`)
	slots := Generate(monday, def, ClassRef{ID: 1, Capacity: 4})
	want := []string{"07:00", "09:00", "18:30"}
	if len(slots) != len(want) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(want))
	}
	for i, s := range slots {
		if got := s.StartAt.Format("15:04"); got != want[i] {
			t.Errorf("slots[%d] starts %s, want %s", i, got, want[i])
		}
		if d := s.EndAt.Sub(s.StartAt); d != SlotDuration {
			t.Errorf("slots[%d] lasts %v, want %v", i, d, SlotDuration)
		}
	}
	if got := Generate(monday.AddDate(0, 0, 5), def, ClassRef{ID: 1}); len(got) != 0 {
		t.Errorf("Saturday produced %d slots, want 0", len(got))
	}
	if got := Generate(monday, nil, ClassRef{ID: 1}); got != nil {
		t.Errorf("Generate(nil def) = %v, want nil", got)
	}
}

func TestGenerate_LocalZone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	def := mustParse(t, `{"mon":"10:00"}`)
	slots := Generate(monday.In(seoul), def, ClassRef{ID: 2, Capacity: 1})
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if got, want := slots[0].StartAt.UTC(), time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("StartAt = %v, want %v", got, want)
	}
}

func TestGenerateRange(t *testing.T) {
	def := mustParse(t, `{"weekdays":"07:00"}`)
	slots := GenerateRange(monday, monday.AddDate(0, 0, 6), def, ClassRef{ID: 1, Capacity: 2})
	if len(slots) != 5 {
		t.Fatalf("len(slots) = %d, want 5", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].StartAt.After(slots[i-1].StartAt) {
			t.Errorf("slots not ordered at %d", i)
		}
	}
}

func TestTokenDays(t *testing.T) {
	mon, tue, wed, thu, fri, sat, sun := time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday
	tests := []struct {
		token  string
		want   []time.Weekday
		wantOK bool
	}{
		{"Mon", []time.Weekday{mon}, true},
		{"wednesdays", []time.Weekday{wed}, true},
		{"mon-fri", []time.Weekday{mon, tue, wed, thu, fri}, true},
		{"fri~mon", []time.Weekday{mon, fri, sat, sun}, true},
		{"tue,thu", []time.Weekday{tue, thu}, true},
		{"mon & tues", []time.Weekday{mon, tue}, true},
		{"MonWedFri", []time.Weekday{mon, wed, fri}, true},
		{"monwed", []time.Weekday{mon, wed}, true},
		{"tuethu", []time.Weekday{tue, thu}, true},
		{"TuesThurs", []time.Weekday{tue, thu}, true},
		{"mondaysfridays", []time.Weekday{mon, fri}, true},
		{"SatSun", []time.Weekday{sat, sun}, true},
		{"monfunday", nil, false},
		{"weekend", []time.Weekday{sat, sun}, true},
		{"daily", []time.Weekday{mon, tue, wed, thu, fri, sat, sun}, true},
		{"funday", nil, false},
		{"", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := TokenDays(tt.token)
			if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TokenDays(%q) = %v, %v, want %v, %v", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	for _, raw := range []string{"", "null", "not json", "[1,2]", `{}`, `{"funday":"10:00"}`, `{"monday":"25:00"}`} {
		if def := ParseJSON([]byte(raw)); def != nil {
			t.Errorf("ParseJSON(%q) = %+v, want nil", raw, def)
		}
	}
}

func TestParseJSON_CompactDayKey(t *testing.T) {
	def := mustParse(t, `{"MonWedFri":"10:00"}`)
	for _, d := range []time.Weekday{time.Monday, time.Wednesday, time.Friday} {
		if got := def.TimesFor(d); len(got) != 1 || got[0] != (model.LocalTime{Hour: 10}) {
			t.Errorf("TimesFor(%s) = %v, want [10:00]", d, got)
		}
	}
	if got := def.TimesFor(time.Tuesday); len(got) != 0 {
		t.Errorf("TimesFor(Tuesday) = %v, want none", got)
	}
}

func TestParseJSON_DoubleEncoded(t *testing.T) {
	def := mustParse(t, `"{\"tuesday\":\"08:15\"}"`)
	if got := def.TimesFor(time.Tuesday); len(got) != 1 || got[0] != (model.LocalTime{Hour: 8, Minute: 15}) {
		t.Errorf("TimesFor(Tuesday) = %v, want [08:15]", got)
	}
}

func TestParseJSON_Skipped(t *testing.T) {
	def := mustParse(t, `{"monday":"10:00, 25:00, abc","blursday":"09:00","tuesday":5}`)
	if len(def.Entries) != 1 || def.Entries[0].Token != "monday" || len(def.Entries[0].Times) != 1 {
		t.Fatalf("Entries = %+v, want monday with one time", def.Entries)
	}
	want := []Skipped{
		{Token: "blursday", Reason: "unknown day token"},
		{Token: "monday", Value: "25:00", Reason: "time out of range"},
		{Token: "monday", Value: "abc", Reason: "invalid time format"},
		{Token: "tuesday", Value: "5", Reason: "unsupported value"},
	}
	if !reflect.DeepEqual(def.Skipped, want) {
		t.Errorf("Skipped = %+v, want %+v", def.Skipped, want)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    model.LocalTime
		wantErr bool
	}{
		{"10:00", model.LocalTime{Hour: 10}, false},
		{"9:05", model.LocalTime{Hour: 9, Minute: 5}, false},
		{" 07:30 ", model.LocalTime{Hour: 7, Minute: 30}, false},
		{"23:59", model.LocalTime{Hour: 23, Minute: 59}, false},
		{"24:00", model.LocalTime{}, true},
		{"12:60", model.LocalTime{}, true},
		{"09:5", model.LocalTime{}, true},
		{"ab:cd", model.LocalTime{}, true},
		{"1000", model.LocalTime{}, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseClock(%q) = %v, %v, want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestDefinition_Map(t *testing.T) {
	def := mustParse(t, `{"mon-wed":"07:00","monday":"19:00"}`)
	m := def.Map()
	if len(m[time.Monday]) != 2 || len(m[time.Tuesday]) != 1 || len(m[time.Thursday]) != 0 {
		t.Errorf("Map() = %v", m)
	}
}

func persistedAt(id uint64, start time.Time, capacity, taken int) model.Slot {
	return model.Slot{
		ID: id, ClassID: 1, StartAt: start.UTC(), EndAt: start.UTC().Add(time.Hour),
		Capacity: capacity, CurrentReservation: taken, IsOpen: true,
	}
}

func TestReconcile(t *testing.T) {
	def := mustParse(t, `{"monday":"10:00,12:00"}`)
	virtual := Generate(monday, def, ClassRef{ID: 1, Capacity: 10})
	persisted := []model.Slot{
		persistedAt(42, monday.Add(10*time.Hour+30*time.Second), 8, 8),
		persistedAt(99, monday.Add(10*time.Hour), 20, 0),
	}

	got := Reconcile(virtual, persisted)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].ID != 42 || got[0].CurrentReservation != 8 || got[0].Capacity != 8 || got[0].VirtualKey != "" {
		t.Errorf("got[0] = %+v, want persisted record 42", got[0])
	}
	if State(got[0]) != Full {
		t.Errorf("State(got[0]) = %s, want FULL", State(got[0]))
	}
	if got[1].Persisted() || got[1].VirtualKey == "" {
		t.Errorf("got[1] = %+v, want untouched virtual slot", got[1])
	}
	if virtual[0].ID != 0 {
		t.Errorf("Reconcile modified its input")
	}
	if again := Reconcile(got, persisted); !reflect.DeepEqual(again, got) {
		t.Errorf("Reconcile is not idempotent:\n%+v\n%+v", again, got)
	}
}

func TestReconcile_LocalZone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	def := mustParse(t, `{"monday":"10:00"}`)
	virtual := Generate(monday.In(seoul), def, ClassRef{ID: 1, Capacity: 3})
	persisted := []model.Slot{persistedAt(5, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), 3, 1)}
	got := Reconcile(virtual, persisted)
	if got[0].ID != 5 || got[0].CurrentReservation != 1 {
		t.Errorf("got = %+v, want match with record 5", got[0])
	}
}

func TestOrphansAndUnpersisted(t *testing.T) {
	def := mustParse(t, `{"monday":"10:00,12:00"}`)
	virtual := Generate(monday, def, ClassRef{ID: 1, Capacity: 10})
	extra := persistedAt(7, monday.Add(15*time.Hour), 5, 0)
	persisted := []model.Slot{persistedAt(6, monday.Add(10*time.Hour), 10, 0), extra}

	orphans := Orphans(virtual, persisted)
	if len(orphans) != 1 || orphans[0].ID != 7 {
		t.Errorf("Orphans = %+v, want [7]", orphans)
	}
	missing := Unpersisted(virtual, persisted)
	if len(missing) != 1 || missing[0].StartAt.Hour() != 12 {
		t.Errorf("Unpersisted = %+v, want the 12:00 slot", missing)
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		name          string
		slot          model.Slot
		want          Availability
		wantRemaining int
	}{
		{"open", model.Slot{Capacity: 10, CurrentReservation: 3, IsOpen: true}, Open, 7},
		{"full", model.Slot{Capacity: 10, CurrentReservation: 10, IsOpen: true}, Full, 0},
		{"closed", model.Slot{Capacity: 10, IsOpen: false}, Full, 10},
		{"over capacity", model.Slot{Capacity: 5, CurrentReservation: 7, IsOpen: true}, Full, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := View(tt.slot)
			if v.State != tt.want || v.Remaining != tt.wantRemaining {
				t.Errorf("View = %s/%d, want %s/%d", v.State, v.Remaining, tt.want, tt.wantRemaining)
			}
			if Bookable(tt.slot) != (tt.want == Open) {
				t.Errorf("Bookable = %v, want %v", Bookable(tt.slot), tt.want == Open)
			}
		})
	}
}
