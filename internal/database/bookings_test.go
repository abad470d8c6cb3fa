package database

import (
	"context"
	"testing"
	"time"

	"vinylbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBooking(t *testing.T, db *DB, phone string, date time.Time, status string) *models.Booking {
	t.Helper()
	b := &models.Booking{
		CustomerName: "Test Customer",
		Phone:        phone,
		ServiceType:  "ติดฟิล์ม",
		BookingDate:  date,
		Status:       status,
	}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCreateBookingDefaultsToPending(t *testing.T) {
	db := setupTestDB(t)

	b := createTestBooking(t, db, "0811111111", time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local), "")
	assert.Equal(t, models.StatusPending, b.Status)

	got, err := db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.CustomerID)
}

func TestListBookingsForOwnerDualKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)

	// Linked by customer id, different phone on the record.
	linked := &models.Booking{
		CustomerName: "Somchai",
		Phone:        "0899999999",
		BookingDate:  time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local),
		CustomerID:   &owner.ID,
	}
	require.NoError(t, db.CreateBooking(ctx, linked))

	// Legacy record matched only by phone.
	legacy := createTestBooking(t, db, "0811111111", time.Date(2026, 9, 2, 12, 0, 0, 0, time.Local), "")

	// Unrelated record.
	createTestBooking(t, db, "0877777777", time.Date(2026, 9, 3, 9, 0, 0, 0, time.Local), "")

	bookings, err := db.ListBookingsForOwner(ctx, owner.ID, owner.Phone)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, linked.ID, bookings[0].ID)
	assert.Equal(t, legacy.ID, bookings[1].ID)
}

func TestSearchBookingsByPhoneOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	older := createTestBooking(t, db, "0811111111", time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local), "")
	newer := createTestBooking(t, db, "0811111111", time.Date(2026, 9, 5, 12, 0, 0, 0, time.Local), "")
	createTestBooking(t, db, "0822222222", time.Date(2026, 9, 3, 9, 0, 0, 0, time.Local), "")

	bookings, err := db.SearchBookingsByPhone(ctx, "0811111111")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	// Most recent booking date first.
	assert.Equal(t, newer.ID, bookings[0].ID)
	assert.Equal(t, older.ID, bookings[1].ID)
}

func TestListBookingsAttachesIdentities(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)
	tech := createTestUser(t, db, "tech1", "0833333333", models.RoleTechnician)

	b := &models.Booking{
		CustomerName: "Somchai",
		Phone:        "0811111111",
		BookingDate:  time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local),
		CustomerID:   &customer.ID,
		TechnicianID: &tech.ID,
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	createTestBooking(t, db, "0822222222", time.Date(2026, 9, 2, 9, 0, 0, 0, time.Local), "")

	bookings, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	require.NotNil(t, bookings[0].Customer)
	assert.Equal(t, "somchai", bookings[0].Customer.Username)
	require.NotNil(t, bookings[0].Technician)
	assert.Equal(t, "tech1", bookings[0].Technician.Username)

	assert.Nil(t, bookings[1].Customer)
	assert.Nil(t, bookings[1].Technician)
}

func TestUpdateBookingPartial(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "0811111111", time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local), "")

	updated, err := db.UpdateBooking(ctx, b.ID, map[string]any{
		"status": models.StatusConfirmed,
		"notes":  "เลื่อนได้",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, "เลื่อนได้", updated.Notes)
	assert.Equal(t, b.Phone, updated.Phone)

	_, err = db.UpdateBooking(ctx, 9999, map[string]any{"notes": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBookingSetNullOnUserDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	customer := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)
	b := &models.Booking{
		CustomerName: "Somchai",
		Phone:        "0811111111",
		BookingDate:  time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local),
		CustomerID:   &customer.ID,
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	// Deleting the account keeps the booking, phone-owned.
	require.NoError(t, db.DeleteUser(ctx, customer.ID))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)
	assert.Equal(t, "0811111111", got.Phone)
}

func TestGetBookingStats(t *testing.T) {
	db := setupTestDB(t)

	date := time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local)
	createTestBooking(t, db, "0811111111", date, models.StatusPending)
	createTestBooking(t, db, "0822222222", date, models.StatusPending)
	createTestBooking(t, db, "0833333333", date, models.StatusDone)

	stats, err := db.GetBookingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[models.StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusDone])
}

func TestGetBookedSlotsExcludesCancelled(t *testing.T) {
	db := setupTestDB(t)

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.Local)
	createTestBooking(t, db, "0811111111", day.Add(9*time.Hour), models.StatusConfirmed)
	createTestBooking(t, db, "0822222222", day.Add(12*time.Hour), models.StatusCancelled)
	// Another day does not leak in.
	createTestBooking(t, db, "0833333333", day.AddDate(0, 0, 1).Add(15*time.Hour), models.StatusConfirmed)

	slots, err := db.GetBookedSlots(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, slots)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tech := createTestUser(t, db, "somtech", "0833333333", models.RoleTechnician)
	inside := &models.Booking{
		CustomerName: "Test Customer",
		Phone:        "0811111111",
		BookingDate:  time.Date(2026, 9, 5, 9, 0, 0, 0, time.Local),
		TechnicianID: &tech.ID,
	}
	require.NoError(t, db.CreateBooking(ctx, inside))
	createTestBooking(t, db, "0822222222", time.Date(2026, 10, 5, 9, 0, 0, 0, time.Local), "")

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.Local)
	bookings, err := db.GetBookingsByDateRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, inside.ID, bookings[0].ID)
	require.NotNil(t, bookings[0].Technician)
	assert.Equal(t, "somtech", bookings[0].Technician.Username)
}
