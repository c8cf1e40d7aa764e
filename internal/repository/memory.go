package repository

import (
	"context"
	"sync"
	"time"

	"belleza/internal/availability"
)

type MemorySlotCache struct {
	slots      sync.Map
	rateLimits sync.Map
}

func NewMemorySlotCache() *MemorySlotCache {
	return &MemorySlotCache{}
}

type slotEntry struct {
	result    *availability.Result
	expiresAt time.Time
}

func (r *MemorySlotCache) GetSlots(ctx context.Context, employeeID string, date time.Time) (*availability.Result, error) {
	val, ok := r.slots.Load(slotKey(employeeID, date))
	if !ok {
		return nil, nil
	}
	entry := val.(*slotEntry)
	if time.Now().After(entry.expiresAt) {
		r.slots.Delete(slotKey(employeeID, date))
		return nil, nil
	}
	return entry.result, nil
}

func (r *MemorySlotCache) SetSlots(ctx context.Context, employeeID string, date time.Time, result *availability.Result, ttl time.Duration) error {
	r.slots.Store(slotKey(employeeID, date), &slotEntry{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (r *MemorySlotCache) InvalidateSlots(ctx context.Context, employeeID string, date time.Time) error {
	r.slots.Delete(slotKey(employeeID, date))
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySlotCache) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(clientID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(clientID, entry)
	return entry.count <= limit, nil
}
