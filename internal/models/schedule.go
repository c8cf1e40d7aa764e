package models

// WorkingWindow is one contiguous time-of-day range during which an
// employee accepts bookings on days matching DayLabel.
type WorkingWindow struct {
	ID          int64  `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Name        string `json:"name"`
	DayLabel    string `json:"day_label"` // raw label, e.g. "Lunes;Miércoles" — empty means every day
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Valid reports the StartMinute < EndMinute invariant.
func (w WorkingWindow) Valid() bool {
	return w.StartMinute >= 0 && w.StartMinute < w.EndMinute && w.EndMinute <= MinutesPerDay
}
