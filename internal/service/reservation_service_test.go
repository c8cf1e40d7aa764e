package service

import (
	"context"
	"io"
	"testing"
	"time"

	"belleza/internal/availability"
	"belleza/internal/config"
	"belleza/internal/database"
	"belleza/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetReservationByPublicID(ctx context.Context, pid string) (*models.Reservation, error) {
	args := m.Called(ctx, pid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockRepo) CreateReservationGuarded(ctx context.Context, r *models.Reservation, d int) error {
	return m.Called(ctx, r, d).Error(0)
}
func (m *mockRepo) UpdateReservationStatusWithVersion(ctx context.Context, id, v int64, s string) error {
	return m.Called(ctx, id, v, s).Error(0)
}
func (m *mockRepo) GetReservationsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetClientReservations(ctx context.Context, cid string) ([]*models.Reservation, error) {
	args := m.Called(ctx, cid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetEmployeeReservations(ctx context.Context, eid string, d time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, eid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetDailyReservations(ctx context.Context, s, e time.Time) (map[string][]*models.Reservation, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetOccupiedIntervals(ctx context.Context, eid string, d time.Time) ([]models.OccupiedInterval, error) {
	args := m.Called(ctx, eid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OccupiedInterval), args.Error(1)
}
func (m *mockRepo) GetWorkingWindows(ctx context.Context, eid string) ([]models.WorkingWindow, error) {
	args := m.Called(ctx, eid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkingWindow), args.Error(1)
}
func (m *mockRepo) CreateSchedule(ctx context.Context, w *models.WorkingWindow) error {
	return m.Called(ctx, w).Error(0)
}
func (m *mockRepo) AssignSchedule(ctx context.Context, eid string, sid int64) error {
	return m.Called(ctx, eid, sid).Error(0)
}
func (m *mockRepo) SeedServices(ctx context.Context, s []models.Service) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockRepo) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockRepo) GetActiveServices(ctx context.Context) ([]*models.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Service), args.Error(1)
}
func (m *mockRepo) ServiceDuration(ctx context.Context, id int64) int {
	return m.Called(ctx, id).Int(0)
}

type mockSlotCache struct {
	mock.Mock
}

func (m *mockSlotCache) GetSlots(ctx context.Context, eid string, d time.Time) (*availability.Result, error) {
	args := m.Called(ctx, eid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Result), args.Error(1)
}
func (m *mockSlotCache) SetSlots(ctx context.Context, eid string, d time.Time, r *availability.Result, ttl time.Duration) error {
	return m.Called(ctx, eid, d, r, ttl).Error(0)
}
func (m *mockSlotCache) InvalidateSlots(ctx context.Context, eid string, d time.Time) error {
	return m.Called(ctx, eid, d).Error(0)
}
func (m *mockSlotCache) CheckRateLimit(ctx context.Context, cid string, l int, w time.Duration) (bool, error) {
	args := m.Called(ctx, cid, l, w)
	return args.Bool(0), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt string, rid int64, r *models.Reservation, s string) error {
	return m.Called(ctx, tt, rid, r, s).Error(0)
}
func (m *mockWorker) EnqueueSyncAgenda(ctx context.Context, s, e time.Time) error {
	return m.Called(ctx, s, e).Error(0)
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		SlotStepMinutes:        60,
		ClosedWeekday:          1,
		DefaultDurationMinutes: 60,
		MaxBookingDays:         30,
		SlotCacheTTLSeconds:    60,
	}
}

func TestValidateReservationDate(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewReservationService(new(mockRepo), nil, nil, nil, testBookingConfig(), &logger)

	now := time.Now()

	assert.ErrorIs(t, svc.ValidateReservationDate(now.AddDate(0, 0, -2)), database.ErrPastDate)
	assert.ErrorIs(t, svc.ValidateReservationDate(now.AddDate(0, 0, 31)), database.ErrDateTooFar)
	assert.NoError(t, svc.ValidateReservationDate(now.AddDate(0, 0, 5)))
}

func TestGetAvailableSlots(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	// Tuesday; the salon closes on Mondays
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	windows := []models.WorkingWindow{
		{ID: 1, EmployeeID: "emp-1", StartMinute: 9 * 60, EndMinute: 12 * 60},
	}

	t.Run("ComputesAndCaches", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockSlotCache)
		svc := NewReservationService(repo, cache, nil, nil, testBookingConfig(), &logger)

		repo.On("ServiceDuration", ctx, int64(1)).Return(60).Once()
		cache.On("GetSlots", ctx, "emp-1", date).Return(nil, nil).Once()
		repo.On("GetWorkingWindows", ctx, "emp-1").Return(windows, nil).Once()
		repo.On("GetOccupiedIntervals", ctx, "emp-1", date).
			Return([]models.OccupiedInterval{{Start: 10 * 60, End: 11 * 60}}, nil).Once()
		cache.On("SetSlots", ctx, "emp-1", date, mock.Anything, time.Minute).Return(nil).Once()

		result, err := svc.GetAvailableSlots(ctx, "emp-1", 1, date)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00", "11:00"}, result.Labels())
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("CacheHitSkipsComputation", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockSlotCache)
		svc := NewReservationService(repo, cache, nil, nil, testBookingConfig(), &logger)

		cached := &availability.Result{Slots: []availability.Slot{{StartMinute: 540, Label: "09:00"}}}
		repo.On("ServiceDuration", ctx, int64(1)).Return(60).Once()
		cache.On("GetSlots", ctx, "emp-1", date).Return(cached, nil).Once()

		result, err := svc.GetAvailableSlots(ctx, "emp-1", 1, date)
		require.NoError(t, err)
		assert.Equal(t, cached, result)
		repo.AssertNotCalled(t, "GetWorkingWindows", mock.Anything, mock.Anything)
	})

	t.Run("NonDefaultDurationBypassesCache", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockSlotCache)
		svc := NewReservationService(repo, cache, nil, nil, testBookingConfig(), &logger)

		repo.On("ServiceDuration", ctx, int64(2)).Return(120).Once()
		repo.On("GetWorkingWindows", ctx, "emp-1").Return(windows, nil).Once()
		repo.On("GetOccupiedIntervals", ctx, "emp-1", date).Return([]models.OccupiedInterval(nil), nil).Once()

		result, err := svc.GetAvailableSlots(ctx, "emp-1", 2, date)
		require.NoError(t, err)
		// 120-minute service in a 09:00-12:00 window
		assert.Equal(t, []string{"09:00", "10:00"}, result.Labels())
		cache.AssertNotCalled(t, "GetSlots", mock.Anything, mock.Anything, mock.Anything)
		cache.AssertNotCalled(t, "SetSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ClosedDayReason", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReservationService(repo, nil, nil, nil, testBookingConfig(), &logger)

		monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
		repo.On("ServiceDuration", ctx, int64(1)).Return(60).Once()
		repo.On("GetWorkingWindows", ctx, "emp-1").Return(windows, nil).Once()
		repo.On("GetOccupiedIntervals", ctx, "emp-1", monday).Return([]models.OccupiedInterval(nil), nil).Once()

		result, err := svc.GetAvailableSlots(ctx, "emp-1", 1, monday)
		require.NoError(t, err)
		assert.Empty(t, result.Slots)
		assert.Equal(t, availability.ReasonClosed, result.Reason)
	})

	t.Run("NoScheduleReason", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReservationService(repo, nil, nil, nil, testBookingConfig(), &logger)

		repo.On("ServiceDuration", ctx, int64(1)).Return(60).Once()
		repo.On("GetWorkingWindows", ctx, "emp-9").Return([]models.WorkingWindow(nil), nil).Once()
		repo.On("GetOccupiedIntervals", ctx, "emp-9", date).Return([]models.OccupiedInterval(nil), nil).Once()

		result, err := svc.GetAvailableSlots(ctx, "emp-9", 1, date)
		require.NoError(t, err)
		assert.Equal(t, availability.ReasonNoSchedule, result.Reason)
	})
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	date := time.Now().AddDate(0, 0, 5)

	corte := &models.Service{ID: 1, Name: "Corte de cabello", DurationMinutes: 60}

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockSlotCache)
		bus := new(mockEventBus)
		worker := new(mockWorker)
		svc := NewReservationService(repo, cache, bus, worker, testBookingConfig(), &logger)

		r := &models.Reservation{ClientID: "client-1", EmployeeID: "emp-1", ServiceID: 1, Date: date, StartMinute: 10 * 60}

		repo.On("GetServiceByID", ctx, int64(1)).Return(corte, nil).Once()
		repo.On("CreateReservationGuarded", ctx, r, 60).Return(nil).Once()
		cache.On("InvalidateSlots", ctx, "emp-1", date).Return(nil).Once()
		bus.On("PublishJSON", "reservation_created", mock.Anything).Return(nil).Once()
		worker.On("EnqueueTask", ctx, "upsert", int64(0), mock.Anything, "").Return(nil).Once()
		worker.On("EnqueueSyncAgenda", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		err := svc.CreateReservation(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, r.Status)
		assert.NotEmpty(t, r.PublicID)
		assert.Equal(t, "Corte de cabello", r.ServiceName)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
		bus.AssertExpectations(t)
		worker.AssertExpectations(t)
	})

	t.Run("SlotTaken", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := NewReservationService(repo, nil, bus, nil, testBookingConfig(), &logger)

		r := &models.Reservation{ClientID: "client-2", EmployeeID: "emp-1", ServiceID: 1, Date: date, StartMinute: 10 * 60}

		repo.On("GetServiceByID", ctx, int64(1)).Return(corte, nil).Once()
		repo.On("CreateReservationGuarded", ctx, r, 60).Return(database.ErrSlotTaken).Once()
		bus.On("PublishJSON", "slot_conflict", mock.Anything).Return(nil).Once()

		err := svc.CreateReservation(ctx, r)
		assert.ErrorIs(t, err, database.ErrSlotTaken)
		bus.AssertExpectations(t)
	})

	t.Run("UnknownService", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReservationService(repo, nil, nil, nil, testBookingConfig(), &logger)

		r := &models.Reservation{ClientID: "client-3", ServiceID: 999, Date: date}
		repo.On("GetServiceByID", ctx, int64(999)).Return(nil, database.ErrServiceNotFound).Once()

		err := svc.CreateReservation(ctx, r)
		assert.ErrorIs(t, err, database.ErrServiceNotFound)
	})

	t.Run("PastDate", func(t *testing.T) {
		svc := NewReservationService(new(mockRepo), nil, nil, nil, testBookingConfig(), &logger)

		r := &models.Reservation{ServiceID: 1, Date: time.Now().AddDate(0, 0, -3)}
		err := svc.CreateReservation(ctx, r)
		assert.ErrorIs(t, err, database.ErrPastDate)
	})
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	date := time.Now().AddDate(0, 0, 3)

	transitions := []struct {
		name   string
		id     int64
		status string
		event  string
		call   func(svc *ReservationService, id, version int64) error
	}{
		{"Confirm", 10, models.StatusConfirmed, "reservation_confirmed",
			func(svc *ReservationService, id, v int64) error { return svc.ConfirmReservation(ctx, id, v) }},
		{"Cancel", 11, models.StatusCancelled, "reservation_canceled",
			func(svc *ReservationService, id, v int64) error { return svc.CancelReservation(ctx, id, v) }},
		{"Complete", 12, models.StatusCompleted, "reservation_completed",
			func(svc *ReservationService, id, v int64) error { return svc.CompleteReservation(ctx, id, v) }},
	}

	for _, tt := range transitions {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			cache := new(mockSlotCache)
			bus := new(mockEventBus)
			worker := new(mockWorker)
			svc := NewReservationService(repo, cache, bus, worker, testBookingConfig(), &logger)

			r := &models.Reservation{ID: tt.id, EmployeeID: "emp-1", Date: date, Status: tt.status}
			repo.On("UpdateReservationStatusWithVersion", ctx, tt.id, int64(1), tt.status).Return(nil).Once()
			repo.On("GetReservation", ctx, tt.id).Return(r, nil).Once()
			if tt.status == models.StatusCancelled {
				cache.On("InvalidateSlots", ctx, "emp-1", date).Return(nil).Once()
			}
			bus.On("PublishJSON", tt.event, mock.Anything).Return(nil).Once()
			worker.On("EnqueueTask", ctx, "update_status", tt.id, r, tt.status).Return(nil).Once()
			worker.On("EnqueueSyncAgenda", ctx, mock.Anything, mock.Anything).Return(nil).Once()

			err := tt.call(svc, tt.id, 1)
			assert.NoError(t, err)
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
			bus.AssertExpectations(t)
			worker.AssertExpectations(t)
		})
	}

	t.Run("VersionConflict", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReservationService(repo, nil, nil, nil, testBookingConfig(), &logger)

		repo.On("UpdateReservationStatusWithVersion", ctx, int64(20), int64(1), models.StatusConfirmed).
			Return(database.ErrConcurrentModification).Once()

		err := svc.ConfirmReservation(ctx, 20, 1)
		assert.ErrorIs(t, err, database.ErrConcurrentModification)
		repo.AssertNotCalled(t, "GetReservation", mock.Anything, mock.Anything)
	})
}

func TestReservationServicePassthroughs(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	repo := new(mockRepo)
	svc := NewReservationService(repo, nil, nil, nil, testBookingConfig(), &logger)

	t.Run("GetReservationByPublicID", func(t *testing.T) {
		r := &models.Reservation{ID: 5, PublicID: "abc"}
		repo.On("GetReservationByPublicID", ctx, "abc").Return(r, nil).Once()

		got, err := svc.GetReservationByPublicID(ctx, "abc")
		assert.NoError(t, err)
		assert.Equal(t, r, got)
	})

	t.Run("GetClientReservations", func(t *testing.T) {
		list := []*models.Reservation{{ID: 1}, {ID: 2}}
		repo.On("GetClientReservations", ctx, "client-1").Return(list, nil).Once()

		got, err := svc.GetClientReservations(ctx, "client-1")
		assert.NoError(t, err)
		assert.Equal(t, list, got)
	})

	t.Run("GetActiveServices", func(t *testing.T) {
		list := []*models.Service{{ID: 1}}
		repo.On("GetActiveServices", ctx).Return(list, nil).Once()

		got, err := svc.GetActiveServices(ctx)
		assert.NoError(t, err)
		assert.Equal(t, list, got)
	})

	t.Run("GetDailyReservations", func(t *testing.T) {
		start := time.Now()
		end := start.AddDate(0, 0, 7)
		daily := map[string][]*models.Reservation{"2026-09-01": {{ID: 1}}}
		repo.On("GetDailyReservations", ctx, start, end).Return(daily, nil).Once()

		got, err := svc.GetDailyReservations(ctx, start, end)
		assert.NoError(t, err)
		assert.Equal(t, daily, got)
	})
}
