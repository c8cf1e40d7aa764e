package database

import (
	"context"
	"testing"
	"time"

	"belleza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueue_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	task := &models.SyncTask{
		TaskType:      "sheets_sync",
		ReservationID: 42,
		Payload:       `{"action":"created"}`,
		Status:        "pending",
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(42), tasks[0].ReservationID)
	assert.Equal(t, "sheets_sync", tasks[0].TaskType)

	// Mark completed: task leaves the pending set
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSyncQueue_RetryScheduling(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	task := &models.SyncTask{TaskType: "sheets_sync", ReservationID: 1, Status: "pending"}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	// Schedule a retry in the future: not yet due
	future := time.Now().Add(1 * time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "retry", "quota exceeded", &future))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// Once due, the retry is picked up again with the error recorded
	past := time.Now().Add(-1 * time.Minute)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "retry", "quota exceeded", &past))

	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].RetryCount)
	require.NotNil(t, tasks[0].LastError)
	assert.Equal(t, "quota exceeded", *tasks[0].LastError)
}

func TestSyncQueue_DeadLetter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	task := &models.SyncTask{TaskType: "sheets_sync", ReservationID: 2, Status: "pending"}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "failed", "permanent error", nil))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	var status string
	var processedAt *time.Time
	err = db.QueryRowContext(ctx, "SELECT status, processed_at FROM sync_queue WHERE id = ?", task.ID).
		Scan(&status, &processedAt)
	require.NoError(t, err)
	assert.Equal(t, "failed", status)
	assert.NotNil(t, processedAt)
}
