package database

import (
	"context"
	"testing"

	"belleza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAssignSchedule(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	w := &models.WorkingWindow{
		Name:        "Turno manana",
		DayLabel:    "lunes; martes; miercoles",
		StartMinute: 9 * 60,
		EndMinute:   14 * 60,
	}
	require.NoError(t, db.CreateSchedule(ctx, w))
	assert.NotZero(t, w.ID)

	require.NoError(t, db.AssignSchedule(ctx, "emp-1", w.ID))
	// Assigning twice is a no-op
	require.NoError(t, db.AssignSchedule(ctx, "emp-1", w.ID))

	windows, err := db.GetWorkingWindows(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "emp-1", windows[0].EmployeeID)
	assert.Equal(t, "lunes; martes; miercoles", windows[0].DayLabel)
	assert.Equal(t, 9*60, windows[0].StartMinute)
	assert.Equal(t, 14*60, windows[0].EndMinute)
}

func TestGetWorkingWindows_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	windows, err := db.GetWorkingWindows(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestGetWorkingWindows_SkipsMalformedRows(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	good := &models.WorkingWindow{Name: "ok", StartMinute: 10 * 60, EndMinute: 18 * 60}
	require.NoError(t, db.CreateSchedule(ctx, good))
	require.NoError(t, db.AssignSchedule(ctx, "emp-2", good.ID))

	// Unparseable time
	res, err := db.ExecContext(ctx,
		`INSERT INTO schedules (name, day_label, start_time, end_time) VALUES ('bad', '', 'soon', '18:00')`)
	require.NoError(t, err)
	badID, _ := res.LastInsertId()
	require.NoError(t, db.AssignSchedule(ctx, "emp-2", badID))

	// Inverted window
	res, err = db.ExecContext(ctx,
		`INSERT INTO schedules (name, day_label, start_time, end_time) VALUES ('inverted', '', '18:00', '09:00')`)
	require.NoError(t, err)
	invID, _ := res.LastInsertId()
	require.NoError(t, db.AssignSchedule(ctx, "emp-2", invID))

	windows, err := db.GetWorkingWindows(ctx, "emp-2")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "ok", windows[0].Name)
}

func TestGetWorkingWindows_MultipleWindows(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	morning := &models.WorkingWindow{Name: "manana", StartMinute: 9 * 60, EndMinute: 12 * 60}
	evening := &models.WorkingWindow{Name: "tarde", StartMinute: 15 * 60, EndMinute: 19 * 60}
	require.NoError(t, db.CreateSchedule(ctx, morning))
	require.NoError(t, db.CreateSchedule(ctx, evening))
	require.NoError(t, db.AssignSchedule(ctx, "emp-3", morning.ID))
	require.NoError(t, db.AssignSchedule(ctx, "emp-3", evening.ID))

	windows, err := db.GetWorkingWindows(ctx, "emp-3")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	// Ordered by start time
	assert.Equal(t, 9*60, windows[0].StartMinute)
	assert.Equal(t, 15*60, windows[1].StartMinute)
}
