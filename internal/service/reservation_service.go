package service

import (
	"context"
	"errors"
	"time"

	"belleza/internal/availability"
	"belleza/internal/config"
	"belleza/internal/database"
	"belleza/internal/domain"
	"belleza/internal/events"
	"belleza/internal/metrics"
	"belleza/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ReservationService struct {
	repo         domain.Repository
	slotCache    domain.SlotCache
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	booking      config.BookingConfig
	logger       *zerolog.Logger
}

func NewReservationService(repo domain.Repository, slotCache domain.SlotCache, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, booking config.BookingConfig, logger *zerolog.Logger) *ReservationService {
	if booking.MaxBookingDays <= 0 {
		booking.MaxBookingDays = 365
	}
	if booking.SlotStepMinutes <= 0 {
		booking.SlotStepMinutes = models.DefaultSlotStepMinutes
	}
	if booking.DefaultDurationMinutes <= 0 {
		booking.DefaultDurationMinutes = models.DefaultDurationMinutes
	}
	return &ReservationService{
		repo:         repo,
		slotCache:    slotCache,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		booking:      booking,
		logger:       logger,
	}
}

func (s *ReservationService) ValidateReservationDate(date time.Time) error {
	// Дата не должна быть в прошлом
	if date.Before(time.Now().AddDate(0, 0, -1)) {
		return database.ErrPastDate
	}

	maxDate := time.Now().AddDate(0, 0, s.booking.MaxBookingDays)
	if date.After(maxDate) {
		return database.ErrDateTooFar
	}

	return nil
}

func (s *ReservationService) computeOptions() availability.Options {
	return availability.Options{
		StepMinutes:       s.booking.SlotStepMinutes,
		ClosedWeekday:     time.Weekday(s.booking.ClosedWeekday),
		ClosedDayDisabled: s.booking.ClosedDayDisabled,
	}
}

// GetAvailableSlots computes the bookable start times for an employee,
// service and date. Results for the default service duration are served
// from the slot cache when fresh.
func (s *ReservationService) GetAvailableSlots(ctx context.Context, employeeID string, serviceID int64, date time.Time) (*availability.Result, error) {
	duration := s.booking.DefaultDurationMinutes
	if serviceID != 0 {
		duration = s.repo.ServiceDuration(ctx, serviceID)
	}

	// Cached results are only valid for the default duration; other
	// durations change which candidates fit and are computed fresh.
	cacheable := s.slotCache != nil && duration == s.booking.DefaultDurationMinutes
	if cacheable {
		cached, err := s.slotCache.GetSlots(ctx, employeeID, date)
		if err != nil {
			s.logger.Warn().Err(err).Msg("slot cache read failed")
		} else if cached != nil {
			metrics.IncSlotCache("hit")
			return cached, nil
		}
		metrics.IncSlotCache("miss")
	}

	windows, err := s.repo.GetWorkingWindows(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	occupied, err := s.repo.GetOccupiedIntervals(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}

	result := availability.ComputeSlots(date, windows, occupied, duration, s.computeOptions())

	outcome := "ok"
	if result.Reason != "" {
		outcome = result.Reason
	}
	metrics.IncSlotComputation(outcome)

	if result.SkippedWindows > 0 {
		s.logger.Warn().Str("employee_id", employeeID).Int("skipped_windows", result.SkippedWindows).
			Msg("malformed working windows excluded from slot computation")
	}
	s.logger.Debug().
		Str("employee_id", employeeID).
		Str("date", date.Format("2006-01-02")).
		Int("duration", duration).
		Int("slots", len(result.Slots)).
		Str("reason", result.Reason).
		Msg("slots computed")

	if cacheable {
		if err := s.slotCache.SetSlots(ctx, employeeID, date, &result, s.booking.SlotCacheTTL()); err != nil {
			s.logger.Warn().Err(err).Msg("slot cache write failed")
		}
	}

	return &result, nil
}

// CreateReservation books a slot. New reservations start as pending and
// a taken slot surfaces as database.ErrSlotTaken.
func (s *ReservationService) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if err := s.ValidateReservationDate(r.Date); err != nil {
		return err
	}

	svc, err := s.repo.GetServiceByID(ctx, r.ServiceID)
	if err != nil {
		return err
	}
	r.ServiceName = svc.Name

	if r.PublicID == "" {
		r.PublicID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	if err := s.repo.CreateReservationGuarded(ctx, r, svc.Duration()); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflict()
			s.publishEvent(events.EventSlotConflict, *r)
		}
		return err
	}

	metrics.IncReservationCreated()
	s.invalidateSlots(ctx, r.EmployeeID, r.Date)
	s.publishEvent(events.EventReservationCreated, *r)
	s.enqueueSync(ctx, *r, "upsert")
	s.enqueueAgendaSync(ctx)

	return nil
}

func (s *ReservationService) ConfirmReservation(ctx context.Context, id, version int64) error {
	return s.transition(ctx, id, version, models.StatusConfirmed, events.EventReservationConfirmed)
}

func (s *ReservationService) CancelReservation(ctx context.Context, id, version int64) error {
	return s.transition(ctx, id, version, models.StatusCancelled, events.EventReservationCanceled)
}

func (s *ReservationService) CompleteReservation(ctx context.Context, id, version int64) error {
	return s.transition(ctx, id, version, models.StatusCompleted, events.EventReservationCompleted)
}

func (s *ReservationService) transition(ctx context.Context, id, version int64, status, eventType string) error {
	if err := s.repo.UpdateReservationStatusWithVersion(ctx, id, version, status); err != nil {
		return err
	}

	r, err := s.repo.GetReservation(ctx, id)
	if err == nil {
		// Cancelling frees the slot for other clients
		if status == models.StatusCancelled {
			s.invalidateSlots(ctx, r.EmployeeID, r.Date)
		}
		s.publishEvent(eventType, *r)
		s.enqueueSync(ctx, *r, "update_status")
		s.enqueueAgendaSync(ctx)
	}

	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error) {
	return s.repo.GetReservationByPublicID(ctx, publicID)
}

func (s *ReservationService) GetClientReservations(ctx context.Context, clientID string) ([]*models.Reservation, error) {
	return s.repo.GetClientReservations(ctx, clientID)
}

func (s *ReservationService) GetEmployeeReservations(ctx context.Context, employeeID string, date time.Time) ([]*models.Reservation, error) {
	return s.repo.GetEmployeeReservations(ctx, employeeID, date)
}

func (s *ReservationService) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	return s.repo.GetReservationsByDateRange(ctx, start, end)
}

func (s *ReservationService) GetDailyReservations(ctx context.Context, start, end time.Time) (map[string][]*models.Reservation, error) {
	return s.repo.GetDailyReservations(ctx, start, end)
}

func (s *ReservationService) GetActiveServices(ctx context.Context) ([]*models.Service, error) {
	return s.repo.GetActiveServices(ctx)
}

func (s *ReservationService) invalidateSlots(ctx context.Context, employeeID string, date time.Time) {
	if s.slotCache == nil {
		return
	}
	if err := s.slotCache.InvalidateSlots(ctx, employeeID, date); err != nil {
		s.logger.Warn().Err(err).Str("employee_id", employeeID).Msg("slot cache invalidation failed")
	}
}

func (s *ReservationService) publishEvent(eventType string, r models.Reservation) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		PublicID:      r.PublicID,
		ClientID:      r.ClientID,
		EmployeeID:    r.EmployeeID,
		ServiceID:     r.ServiceID,
		ServiceName:   r.ServiceName,
		Status:        r.Status,
		Date:          r.Date,
		StartTime:     models.FormatClock(r.StartMinute),
		Comment:       r.Comment,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *ReservationService) enqueueSync(ctx context.Context, r models.Reservation, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = r.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, r.ID, &r, status); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

func (s *ReservationService) enqueueAgendaSync(ctx context.Context) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueSyncAgenda(ctx, time.Time{}, time.Time{}); err != nil {
		s.logger.Error().Err(err).Msg("agenda sync enqueue error")
	}
}
