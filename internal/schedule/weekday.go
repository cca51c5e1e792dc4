package schedule

import (
	"strings"
	"time"
)

var dayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// group tokens that stand for more than one day
var dayGroups = map[string][]time.Weekday{
	"daily":    allDays(),
	"everyday": allDays(),
	"all":      allDays(),
	"weekday":  {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"weekdays": {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"weekend":  {time.Saturday, time.Sunday},
	"weekends": {time.Saturday, time.Sunday},
}

func allDays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
}

// DayName returns the canonical lower-case English name of a weekday.
func DayName(d time.Weekday) string { return dayNames[d] }

// wordDay resolves a single word such as "mon", "tues", "Wednesday" or
// "fridays" to a weekday. A word matches when it starts with the day's
// three-letter abbreviation and is a prefix of the full name (a trailing
// plural "s" is tolerated).
func wordDay(word string) (time.Weekday, bool) {
	w := strings.TrimSuffix(strings.ToLower(word), "s")
	if len(w) < 3 {
		return 0, false
	}
	for i, name := range dayNames {
		if strings.HasPrefix(w, name[:3]) && strings.HasPrefix(name, w) {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// TokenDays resolves a day-group token to the weekdays it covers. Tokens may
// name one day ("monday", "Mon"), several days separated by any non-letter
// ("mon/wed/fri", "tue,thu") or run together ("MonWedFri"), a range
// ("mon-fri") or a group keyword ("weekdays", "weekend", "daily"). Matching is case-insensitive. The result
// is in Monday-first order without duplicates; ok is false when nothing in
// the token names a day.
func TokenDays(token string) ([]time.Weekday, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return nil, false
	}
	if g, found := dayGroups[t]; found {
		return append([]time.Weekday(nil), g...), true
	}
	seen := map[time.Weekday]bool{}
	if from, to, isRange := splitRange(t); isRange {
		for _, d := range dayRange(from, to) {
			seen[d] = true
		}
		return mondayFirst(seen), true
	}

	for _, word := range strings.FieldsFunc(t, func(r rune) bool { return r < 'a' || r > 'z' }) {
		if g, found := dayGroups[word]; found {
			for _, d := range g {
				seen[d] = true
			}
			continue
		}
		if d, found := wordDay(word); found {
			seen[d] = true
			continue
		}
		for _, d := range compactDays(word) {
			seen[d] = true
		}
	}
	if len(seen) == 0 {
		return nil, false
	}
	return mondayFirst(seen), true
}

// compactDays reads a word made only of day names and abbreviations run
// together, such as "monwedfri" or "tuesthurs". At each position the
// longest spelling of a day wins; a plural "s" between days is skipped.
// A word with anything else in it yields nothing.
func compactDays(word string) []time.Weekday {
	var out []time.Weekday
	for i := 0; i < len(word); {
		best, bestLen := time.Weekday(0), 0
		for d, name := range dayNames {
			n := commonPrefix(word[i:], name)
			if n >= 3 && n > bestLen {
				best, bestLen = time.Weekday(d), n
			}
		}
		switch {
		case bestLen > 0:
			out = append(out, best)
			i += bestLen
		case word[i] == 's' && len(out) > 0:
			i++
		default:
			return nil
		}
	}
	return out
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func mondayFirst(set map[time.Weekday]bool) []time.Weekday {
	var out []time.Weekday
	for _, d := range allDays() {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}

// splitRange recognizes "mon-fri" and "mon~fri" style ranges.
func splitRange(t string) (time.Weekday, time.Weekday, bool) {
	for _, sep := range []string{"-", "~"} {
		parts := strings.Split(t, sep)
		if len(parts) != 2 {
			continue
		}
		from, ok1 := wordDay(strings.TrimSpace(parts[0]))
		to, ok2 := wordDay(strings.TrimSpace(parts[1]))
		if ok1 && ok2 {
			return from, to, true
		}
	}
	return 0, 0, false
}

// dayRange walks forward from one weekday to another, wrapping past Sunday.
func dayRange(from, to time.Weekday) []time.Weekday {
	var out []time.Weekday
	for d := from; ; d = (d + 1) % 7 {
		out = append(out, d)
		if d == to {
			break
		}
	}
	return out
}

// MatchesDay reports whether a day-group token covers the weekday.
func MatchesDay(token string, d time.Weekday) bool {
	days, ok := TokenDays(token)
	if !ok {
		return false
	}
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}
