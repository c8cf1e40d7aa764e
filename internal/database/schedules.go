package database

import (
	"context"
	"fmt"

	"belleza/internal/models"
)

// CreateSchedule inserts a working-hours template row.
func (db *DB) CreateSchedule(ctx context.Context, w *models.WorkingWindow) error {
	query := `INSERT INTO schedules (name, day_label, start_time, end_time) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		w.Name,
		w.DayLabel,
		models.FormatClock(w.StartMinute),
		models.FormatClock(w.EndMinute),
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	w.ID = id
	return nil
}

// AssignSchedule links a schedule to an employee. Idempotent.
func (db *DB) AssignSchedule(ctx context.Context, employeeID string, scheduleID int64) error {
	query := `INSERT OR IGNORE INTO employee_schedules (employee_id, schedule_id) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, query, employeeID, scheduleID); err != nil {
		return fmt.Errorf("failed to assign schedule: %w", err)
	}
	return nil
}

// GetWorkingWindows returns the employee's configured windows with times
// already normalized to minutes since midnight. Rows with unparseable
// times are skipped and logged, not fatal. An empty result means the
// employee has no schedule assigned; store failures are returned as
// errors so callers can distinguish "no data" from "lookup failed".
func (db *DB) GetWorkingWindows(ctx context.Context, employeeID string) ([]models.WorkingWindow, error) {
	query := `SELECT s.id, es.employee_id, COALESCE(s.name, ''), s.day_label, s.start_time, s.end_time
              FROM employee_schedules es
              JOIN schedules s ON s.id = es.schedule_id
              WHERE es.employee_id = ?
              ORDER BY s.start_time`
	rows, err := db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get working windows: %w", err)
	}
	defer rows.Close()

	var windows []models.WorkingWindow
	skipped := 0
	for rows.Next() {
		var w models.WorkingWindow
		var startStr, endStr string
		if err := rows.Scan(&w.ID, &w.EmployeeID, &w.Name, &w.DayLabel, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("failed to scan working window: %w", err)
		}

		start, serr := models.ParseClock(startStr)
		end, eerr := models.ParseClock(endStr)
		if serr != nil || eerr != nil {
			skipped++
			db.logger.Warn().Int64("schedule_id", w.ID).Str("start", startStr).Str("end", endStr).
				Msg("skipping schedule with malformed times")
			continue
		}
		w.StartMinute = start
		w.EndMinute = end

		if !w.Valid() {
			skipped++
			db.logger.Warn().Int64("schedule_id", w.ID).
				Msg("skipping schedule with inverted window")
			continue
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read working windows: %w", err)
	}

	if skipped > 0 {
		db.logger.Warn().Str("employee_id", employeeID).Int("skipped", skipped).
			Msg("malformed schedule rows ignored")
	}
	return windows, nil
}
