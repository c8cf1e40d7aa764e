// Package schedule normalizes day-of-week labels coming from schedule
// configuration. Labels are free-form Spanish day names, sometimes
// composite ("Lunes;Miércoles"), with inconsistent casing and accents.
package schedule

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dayNames = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miercoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sabado",
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a label and strips diacritics, so "Miércoles",
// "MIERCOLES" and "miercoles" compare equal.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		return strings.TrimSpace(strings.ToLower(s))
	}
	return strings.TrimSpace(out)
}

// DayName returns the normalized Spanish name for a weekday.
func DayName(w time.Weekday) string {
	return dayNames[w]
}

// WeekdayOf derives the weekday of a calendar date without going through
// a timezone-sensitive constructor. The date is re-anchored to UTC so a
// "YYYY-MM-DD" parsed in any location yields the same weekday.
func WeekdayOf(date time.Time) time.Weekday {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).Weekday()
}

// splitLabel breaks a composite label on the delimiters seen in
// configured schedules: ";", ",", "|", "/" and "-".
func splitLabel(label string) []string {
	parts := strings.FieldsFunc(label, func(r rune) bool {
		switch r {
		case ';', ',', '|', '/', '-':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LabelMatchesDay reports whether a raw schedule label applies to the
// given normalized day name. An empty label applies to every day.
// Matching is bidirectional containment to tolerate abbreviations
// ("mierc" matches "miercoles" and vice versa).
func LabelMatchesDay(label, day string) bool {
	if strings.TrimSpace(label) == "" {
		return true
	}
	for _, part := range splitLabel(Normalize(label)) {
		if strings.Contains(part, day) || strings.Contains(day, part) {
			return true
		}
	}
	return false
}

// MatchesDate is a convenience wrapper combining weekday derivation and
// label matching.
func MatchesDate(label string, date time.Time) bool {
	return LabelMatchesDay(label, DayName(WeekdayOf(date)))
}
