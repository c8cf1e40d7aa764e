package database

import "errors"

var (
	// ErrSlotTaken means the requested time range overlaps an existing
	// reservation, detected either by the in-transaction re-check or by
	// the unique slot index.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrPastDate запрет бронирования на прошедшую дату
	ErrPastDate = errors.New("booking date is in the past")

	// ErrDateTooFar дата за пределами горизонта бронирования
	ErrDateTooFar = errors.New("booking date is too far in the future")

	// ErrConcurrentModification optimistic version check failed.
	ErrConcurrentModification = errors.New("reservation was modified concurrently")

	ErrServiceNotFound     = errors.New("service not found")
	ErrReservationNotFound = errors.New("reservation not found")
)
