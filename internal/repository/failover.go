package repository

import (
	"context"
	"sync/atomic"
	"time"

	"belleza/internal/availability"
	"belleza/internal/domain"

	"github.com/rs/zerolog"
)

type FailoverSlotCache struct {
	primary   domain.SlotCache
	fallback  domain.SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSlotCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverSlotCache) GetSlots(ctx context.Context, employeeID string, date time.Time) (*availability.Result, error) {
	if !r.isDown.Load() {
		result, err := r.primary.GetSlots(ctx, employeeID, date)
		if err == nil {
			return result, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		result, err := r.primary.GetSlots(ctx, employeeID, date)
		if err == nil {
			r.isDown.Store(false)
			return result, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSlots(ctx, employeeID, date)
}

func (r *FailoverSlotCache) SetSlots(ctx context.Context, employeeID string, date time.Time, result *availability.Result, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.SetSlots(ctx, employeeID, date, result, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSlots(ctx, employeeID, date, result, ttl)
}

func (r *FailoverSlotCache) InvalidateSlots(ctx context.Context, employeeID string, date time.Time) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateSlots(ctx, employeeID, date)
		if err == nil {
			// Keep the fallback coherent in case we flip over later
			_ = r.fallback.InvalidateSlots(ctx, employeeID, date)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.InvalidateSlots(ctx, employeeID, date)
}

func (r *FailoverSlotCache) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, clientID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, clientID, limit, window)
}
