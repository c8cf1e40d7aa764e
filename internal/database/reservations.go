package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"belleza/internal/models"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

const reservationColumns = `id, public_id, client_id, employee_id, service_id, service_name,
                 date, start_time, status, comment, created_at, updated_at, version`

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetOccupiedIntervals derives the blocked time ranges for an employee
// on a date by joining each non-cancelled reservation against its
// service duration. Interval ends fall back to the default duration
// when the service row is missing or malformed.
func (db *DB) GetOccupiedIntervals(ctx context.Context, employeeID string, date time.Time) ([]models.OccupiedInterval, error) {
	return db.occupiedIntervals(ctx, db.DB, employeeID, date)
}

func (db *DB) occupiedIntervals(ctx context.Context, q rowsQuerier, employeeID string, date time.Time) ([]models.OccupiedInterval, error) {
	query := `SELECT r.start_time, COALESCE(s.duration_minutes, 0)
              FROM reservations r
              LEFT JOIN services s ON s.id = r.service_id
              WHERE r.employee_id = ? AND r.date = ? AND r.status != ?`
	rows, err := q.QueryContext(ctx, query, employeeID, date.Format(dateLayout), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupied intervals: %w", err)
	}
	defer rows.Close()

	var intervals []models.OccupiedInterval
	skipped := 0
	for rows.Next() {
		var startStr string
		var duration int
		if err := rows.Scan(&startStr, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan occupied interval: %w", err)
		}

		start, err := models.ParseClock(startStr)
		if err != nil {
			skipped++
			continue
		}
		if duration <= 0 {
			duration = models.DefaultDurationMinutes
		}
		intervals = append(intervals, models.OccupiedInterval{Start: start, End: start + duration})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read occupied intervals: %w", err)
	}

	if skipped > 0 {
		db.logger.Warn().Str("employee_id", employeeID).Int("skipped", skipped).
			Msg("reservations with malformed start times ignored")
	}
	return intervals, nil
}

// CreateReservationGuarded re-validates availability inside a
// transaction and inserts the reservation. The read-then-write check is
// best effort; the partial unique index on (employee_id, date,
// start_time) is the authoritative guard, and a violation of either
// surfaces as ErrSlotTaken.
func (db *DB) CreateReservationGuarded(ctx context.Context, r *models.Reservation, durationMinutes int) error {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultDurationMinutes
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	occupied, err := db.occupiedIntervals(ctx, tx, r.EmployeeID, r.Date)
	if err != nil {
		return err
	}
	for _, occ := range occupied {
		if occ.Overlaps(r.StartMinute, r.StartMinute+durationMinutes) {
			return ErrSlotTaken
		}
	}

	query := `INSERT INTO reservations (
                public_id, client_id, employee_id, service_id, service_name,
                date, start_time, status, comment, created_at, updated_at, version
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		r.PublicID,
		r.ClientID,
		r.EmployeeID,
		r.ServiceID,
		r.ServiceName,
		r.Date.Format(dateLayout),
		models.FormatClock(r.StartMinute),
		r.Status,
		r.Comment,
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return db.scanReservationRow(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE public_id = ?`
	return db.scanReservationRow(db.QueryRowContext(ctx, query, publicID))
}

func (db *DB) scanReservationRow(row *sql.Row) (*models.Reservation, error) {
	var r models.Reservation
	var dateStr, startStr string
	err := row.Scan(
		&r.ID, &r.PublicID, &r.ClientID, &r.EmployeeID, &r.ServiceID, &r.ServiceName,
		&dateStr, &startStr, &r.Status, &r.Comment, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return db.finishReservation(&r, dateStr, startStr)
}

func (db *DB) finishReservation(r *models.Reservation, dateStr, startStr string) (*models.Reservation, error) {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation date %s: %w", dateStr, err)
	}
	start, err := models.ParseClock(startStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation time %s: %w", startStr, err)
	}
	r.Date = date
	r.StartMinute = start
	return r, nil
}

// UpdateReservationStatusWithVersion applies an optimistic-locked
// status transition. Zero rows affected means either the reservation is
// gone or someone got there first; the follow-up lookup tells which.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check reservation after update: %w", err)
		}
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) GetReservationsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations WHERE date >= ? AND date <= ?
              ORDER BY date, start_time`
	rows, err := db.QueryContext(ctx, query, startDate.Format(dateLayout), endDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	defer rows.Close()

	return db.collectReservations(rows)
}

func (db *DB) GetClientReservations(ctx context.Context, clientID string) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations WHERE client_id = ?
              ORDER BY date DESC, start_time DESC`
	rows, err := db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client reservations: %w", err)
	}
	defer rows.Close()

	return db.collectReservations(rows)
}

func (db *DB) GetEmployeeReservations(ctx context.Context, employeeID string, date time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations WHERE employee_id = ? AND date = ?
              ORDER BY start_time`
	rows, err := db.QueryContext(ctx, query, employeeID, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get employee reservations: %w", err)
	}
	defer rows.Close()

	return db.collectReservations(rows)
}

func (db *DB) collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r := &models.Reservation{}
		var dateStr, startStr string
		err := rows.Scan(
			&r.ID, &r.PublicID, &r.ClientID, &r.EmployeeID, &r.ServiceID, &r.ServiceName,
			&dateStr, &startStr, &r.Status, &r.Comment, &r.CreatedAt, &r.UpdatedAt, &r.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		if _, err := db.finishReservation(r, dateStr, startStr); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// GetDailyReservations groups a date range by day key for agenda views.
func (db *DB) GetDailyReservations(ctx context.Context, startDate, endDate time.Time) (map[string][]*models.Reservation, error) {
	reservations, err := db.GetReservationsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Reservation)
	for _, r := range reservations {
		key := r.Date.Format(dateLayout)
		daily[key] = append(daily[key], r)
	}
	return daily, nil
}
