// Package schedule turns a class's weekly recurring schedule into concrete
// session slots. It parses the stored schedule definition, generates
// virtual slots for a date or range, reconciles them with persisted slot
// records and derives per-slot availability. Everything here is pure: no
// I/O, no clocks, no shared state.
package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// Entry is one day-group of the schedule with its valid start times. Token
// keeps the key as written so generation can match on it.
type Entry struct {
	Token string
	Days  []time.Weekday
	Times []model.LocalTime
}

// Skipped records an input item that was dropped during parsing.
type Skipped struct {
	Token  string // day-group key the item belonged to
	Value  string // offending value, empty when the key itself was rejected
	Reason string
}

func (s Skipped) String() string {
	if s.Value == "" {
		return fmt.Sprintf("%s: %s", s.Token, s.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", s.Token, s.Value, s.Reason)
}

// Definition is a parsed schedule. Entries are ordered by token so output
// is deterministic regardless of map iteration order.
type Definition struct {
	Entries []Entry
	Skipped []Skipped
}

// TimesFor returns every start time offered on the weekday, across all
// matching entries, in entry order.
func (d *Definition) TimesFor(day time.Weekday) []model.LocalTime {
	if d == nil {
		return nil
	}
	var out []model.LocalTime
	for _, e := range d.Entries {
		if MatchesDay(e.Token, day) {
			out = append(out, e.Times...)
		}
	}
	return out
}

// Map flattens the definition into weekday -> times.
func (d *Definition) Map() model.ScheduleDefinition {
	out := model.ScheduleDefinition{}
	if d == nil {
		return out
	}
	for _, e := range d.Entries {
		for _, day := range e.Days {
			out[day] = append(out[day], e.Times...)
		}
	}
	return out
}

// ParseJSON decodes a stored schedule. The text may be a JSON object or a
// JSON string that itself contains the object (double-encoded columns).
// It returns nil when the input is empty, malformed or defines no
// sessions at all; callers treat nil as "no recurring schedule".
func ParseJSON(raw []byte) *Definition {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return ParseMap(m)
}

// ParseString is ParseJSON for a nullable text column.
func ParseString(raw *string) *Definition {
	if raw == nil {
		return nil
	}
	return ParseJSON([]byte(*raw))
}

// ParseMap parses an already decoded mapping of day-group token to times.
// Values may be a comma-separated string, a list of strings or null.
func ParseMap(m map[string]any) *Definition {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	def := &Definition{}
	for _, key := range keys {
		token := strings.TrimSpace(key)
		days, ok := TokenDays(token)
		if !ok {
			def.Skipped = append(def.Skipped, Skipped{Token: key, Reason: "unknown day token"})
			continue
		}
		values, ok := timeValues(m[key])
		if !ok {
			def.Skipped = append(def.Skipped, Skipped{Token: key, Value: fmt.Sprint(m[key]), Reason: "unsupported value"})
			continue
		}
		var times []model.LocalTime
		for _, v := range values {
			t, err := ParseClock(v)
			if err != nil {
				def.Skipped = append(def.Skipped, Skipped{Token: key, Value: v, Reason: err.Error()})
				continue
			}
			times = append(times, t)
		}
		if len(times) == 0 {
			continue
		}
		def.Entries = append(def.Entries, Entry{Token: token, Days: days, Times: times})
	}
	if len(def.Entries) == 0 {
		return nil
	}
	return def
}

// FromStrings is ParseMap for the common wire shape map[day]"HH:MM,HH:MM".
func FromStrings(m map[string]string) *Definition {
	generic := make(map[string]any, len(m))
	for k, v := range m {
		generic[k] = v
	}
	return ParseMap(generic)
}

// timeValues splits a raw value into trimmed, non-empty time strings.
func timeValues(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return splitTimes(t), true
	case []any:
		var out []string
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, splitTimes(s)...)
		}
		return out, true
	case []string:
		var out []string
		for _, s := range t {
			out = append(out, splitTimes(s)...)
		}
		return out, true
	}
	return nil, false
}

func splitTimes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseClock parses "HH:MM" (a single-digit hour is accepted).
func ParseClock(s string) (model.LocalTime, error) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return model.LocalTime{}, fmt.Errorf("invalid time format")
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return model.LocalTime{}, fmt.Errorf("invalid hour")
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return model.LocalTime{}, fmt.Errorf("invalid minute")
	}
	t := model.LocalTime{Hour: h, Minute: m}
	if !t.Valid() {
		return model.LocalTime{}, fmt.Errorf("time out of range")
	}
	return t, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
