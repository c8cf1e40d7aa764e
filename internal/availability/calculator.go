// Package availability computes bookable time slots for an employee on
// a date. It is pure: callers fetch working windows and occupied
// intervals themselves and pass them in, so the same logic serves every
// entry point.
package availability

import (
	"sort"
	"time"

	"belleza/internal/models"
	"belleza/internal/schedule"
)

// Reason codes attached to an empty result so callers can tell the
// states apart for user-facing messaging.
const (
	ReasonClosed      = "closed"
	ReasonNoSchedule  = "no-schedule"
	ReasonFullyBooked = "fully-booked"
)

// Slot is a candidate bookable start time.
type Slot struct {
	StartMinute int    `json:"start_minute"`
	Label       string `json:"label"` // HH:MM
}

// Result carries the ordered slot list and, when empty, why.
type Result struct {
	Slots  []Slot `json:"slots"`
	Reason string `json:"reason,omitempty"`

	// SkippedWindows counts malformed windows dropped from the
	// computation; callers log it.
	SkippedWindows int `json:"-"`
}

// Options tune slot generation. The zero value is not usable directly;
// start from DefaultOptions.
type Options struct {
	StepMinutes       int
	ClosedWeekday     time.Weekday
	ClosedDayDisabled bool
}

// DefaultOptions matches the salon's rules: hour-granularity slots,
// closed on Mondays.
func DefaultOptions() Options {
	return Options{
		StepMinutes:   models.DefaultSlotStepMinutes,
		ClosedWeekday: time.Weekday(models.DefaultClosedWeekday),
	}
}

func (o Options) normalized() Options {
	if o.StepMinutes <= 0 {
		o.StepMinutes = models.DefaultSlotStepMinutes
	}
	return o
}

// ComputeSlots returns the ordered list of bookable start times for a
// service of the given duration on the given date.
//
// All arithmetic is in minutes since midnight. A candidate [t, t+dur)
// is valid when it fits inside a window applying to the date's weekday
// and overlaps no occupied interval (half-open test).
func ComputeSlots(date time.Time, windows []models.WorkingWindow, occupied []models.OccupiedInterval, durationMinutes int, opts Options) Result {
	opts = opts.normalized()

	if durationMinutes <= 0 {
		durationMinutes = models.DefaultDurationMinutes
	}

	// Business-wide closed day applies regardless of per-employee windows.
	weekday := schedule.WeekdayOf(date)
	if !opts.ClosedDayDisabled && weekday == opts.ClosedWeekday {
		return Result{Reason: ReasonClosed}
	}

	if len(windows) == 0 {
		return Result{Reason: ReasonNoSchedule}
	}

	day := schedule.DayName(weekday)
	var matched []models.WorkingWindow
	skipped := 0
	for _, w := range windows {
		if !w.Valid() {
			skipped++
			continue
		}
		if schedule.LabelMatchesDay(w.DayLabel, day) {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return Result{Reason: ReasonNoSchedule, SkippedWindows: skipped}
	}

	seen := make(map[int]bool)
	var starts []int
	for _, w := range matched {
		for t := w.StartMinute; t+durationMinutes <= w.EndMinute; t += opts.StepMinutes {
			if seen[t] {
				continue
			}
			if overlapsAny(t, t+durationMinutes, occupied) {
				continue
			}
			seen[t] = true
			starts = append(starts, t)
		}
	}

	if len(starts) == 0 {
		return Result{Reason: ReasonFullyBooked, SkippedWindows: skipped}
	}

	sort.Ints(starts)
	slots := make([]Slot, len(starts))
	for i, t := range starts {
		slots[i] = Slot{StartMinute: t, Label: models.FormatClock(t)}
	}
	return Result{Slots: slots, SkippedWindows: skipped}
}

func overlapsAny(start, end int, occupied []models.OccupiedInterval) bool {
	for _, occ := range occupied {
		if occ.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// Labels flattens a result to HH:MM strings, the shape UI callers render.
func (r Result) Labels() []string {
	if len(r.Slots) == 0 {
		return nil
	}
	out := make([]string, len(r.Slots))
	for i, s := range r.Slots {
		out[i] = s.Label
	}
	return out
}
