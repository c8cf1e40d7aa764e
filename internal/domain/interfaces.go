package domain

import (
	"context"
	"time"

	"belleza/internal/availability"
	"belleza/internal/models"
)

type Repository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error)
	CreateReservationGuarded(ctx context.Context, r *models.Reservation, durationMinutes int) error
	UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetClientReservations(ctx context.Context, clientID string) ([]*models.Reservation, error)
	GetEmployeeReservations(ctx context.Context, employeeID string, date time.Time) ([]*models.Reservation, error)
	GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error)
	GetOccupiedIntervals(ctx context.Context, employeeID string, date time.Time) ([]models.OccupiedInterval, error)
	GetWorkingWindows(ctx context.Context, employeeID string) ([]models.WorkingWindow, error)
	CreateSchedule(ctx context.Context, w *models.WorkingWindow) error
	AssignSchedule(ctx context.Context, employeeID string, scheduleID int64) error
	SeedServices(ctx context.Context, services []models.Service) error
	GetServiceByID(ctx context.Context, id int64) (*models.Service, error)
	GetActiveServices(ctx context.Context) ([]*models.Service, error)
	ServiceDuration(ctx context.Context, serviceID int64) int
}

// SlotCache stores computed availability results keyed by employee and
// date, plus the per-client rate limit counters.
type SlotCache interface {
	GetSlots(ctx context.Context, employeeID string, date time.Time) (*availability.Result, error)
	SetSlots(ctx context.Context, employeeID string, date time.Time, result *availability.Result, ttl time.Duration) error
	InvalidateSlots(ctx context.Context, employeeID string, date time.Time) error
	CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error
	ReplaceAgenda(ctx context.Context, startDate, endDate time.Time, daily map[string][]*models.Reservation) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation, status string) error
	EnqueueSyncAgenda(ctx context.Context, startDate, endDate time.Time) error
}

type ReservationService interface {
	ValidateReservationDate(date time.Time) error
	GetAvailableSlots(ctx context.Context, employeeID string, serviceID int64, date time.Time) (*availability.Result, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	ConfirmReservation(ctx context.Context, id, version int64) error
	CancelReservation(ctx context.Context, id, version int64) error
	CompleteReservation(ctx context.Context, id, version int64) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error)
	GetClientReservations(ctx context.Context, clientID string) ([]*models.Reservation, error)
	GetEmployeeReservations(ctx context.Context, employeeID string, date time.Time) ([]*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error)
	GetActiveServices(ctx context.Context) ([]*models.Service, error)
}
