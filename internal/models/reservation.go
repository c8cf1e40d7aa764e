package models

import "time"

type Reservation struct {
	ID          int64     `json:"id"`
	PublicID    string    `json:"public_id"`
	ClientID    string    `json:"client_id"`
	EmployeeID  string    `json:"employee_id"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Date        time.Time `json:"date"`
	StartMinute int       `json:"start_minute"`
	Status      string    `json:"status"` // pending, confirmed, completed, cancelled
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// StartClock returns the reservation start as HH:MM.
func (r *Reservation) StartClock() string {
	return FormatClock(r.StartMinute)
}

// Blocks reports whether the reservation occupies its time range
// for availability purposes. Cancelled reservations free the slot.
func (r *Reservation) Blocks() bool {
	return r.Status != StatusCancelled
}

// OccupiedInterval is a derived, never persisted, time range an employee
// cannot be rebooked into. Start and End are minutes since midnight on
// the queried date, half-open [Start, End).
type OccupiedInterval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps applies the half-open interval test against [start, end).
func (o OccupiedInterval) Overlaps(start, end int) bool {
	return start < o.End && end > o.Start
}
