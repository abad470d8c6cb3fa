package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"vinylbook/internal/database"
	"vinylbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	upserts  []int64
	deletes  []int64
	statuses map[int64]string
	fail     error
}

func (f *fakeSheets) UpsertBooking(_ context.Context, b *models.Booking) error {
	if f.fail != nil {
		return f.fail
	}
	f.upserts = append(f.upserts, b.ID)
	return nil
}

func (f *fakeSheets) DeleteBookingRow(_ context.Context, id int64) error {
	if f.fail != nil {
		return f.fail
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeSheets) UpdateBookingStatus(_ context.Context, id int64, status string) error {
	if f.fail != nil {
		return f.fail
	}
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	return nil
}

func newTestWorker(t *testing.T, sheets SheetsClient) (*SheetsWorker, *database.DB) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond}, &logger)
	return w, db
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4), "clamped to max")
	assert.Equal(t, time.Second, p.NextDelay(0), "attempt floor")
}

func TestEnqueueTaskPersists(t *testing.T) {
	w, db := newTestWorker(t, &fakeSheets{})
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsert, 7, ""))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskUpsert, tasks[0].TaskType)
	assert.Equal(t, int64(7), tasks[0].BookingID)

	assert.Error(t, w.EnqueueTask(ctx, "", 7, ""))
	assert.Error(t, w.EnqueueTask(ctx, TaskUpsert, 0, ""))
}

func TestProcessTaskUpsert(t *testing.T) {
	sheets := &fakeSheets{}
	w, db := newTestWorker(t, sheets)
	ctx := context.Background()

	booking := &models.Booking{CustomerName: "Somchai", Phone: "0811111111", BookingDate: time.Now()}
	require.NoError(t, db.CreateBooking(ctx, booking))

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsert, booking.ID, ""))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])

	assert.Equal(t, []int64{booking.ID}, sheets.upserts)

	remaining, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining, "task marked completed")
}

func TestProcessTaskUpsertOfDeletedBooking(t *testing.T) {
	sheets := &fakeSheets{}
	w, db := newTestWorker(t, sheets)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsert, 999, ""))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])

	// The booking vanished before the mirror caught up, so the row is
	// cleared instead.
	assert.Equal(t, []int64{int64(999)}, sheets.deletes)
	assert.Empty(t, sheets.upserts)
}

func TestProcessTaskStatusUpdate(t *testing.T) {
	sheets := &fakeSheets{}
	w, db := newTestWorker(t, sheets)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpdateStatus, 7, models.StatusCancelled))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])
	assert.Equal(t, models.StatusCancelled, sheets.statuses[7])
}

func TestProcessTaskRetriesThenFails(t *testing.T) {
	sheets := &fakeSheets{fail: errors.New("sheets down")}
	w, db := newTestWorker(t, sheets)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskDelete, 7, ""))

	// First two attempts reschedule, the third exhausts the policy.
	for i := 0; i < 3; i++ {
		tasks, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		if len(tasks) == 0 {
			// A rescheduled task may still carry a future next_retry_at.
			time.Sleep(5 * time.Millisecond)
			tasks, err = db.GetPendingSyncTasks(ctx, 10)
			require.NoError(t, err)
		}
		require.Len(t, tasks, 1)
		w.processTask(ctx, &tasks[0])
	}

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].LastError)
	assert.Contains(t, *failed[0].LastError, "sheets down")

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
