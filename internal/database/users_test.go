package database

import (
	"context"
	"os"
	"testing"
	"time"

	"vinylbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username, phone, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Password: "hashed",
		FullName: "Test " + username,
		Phone:    phone,
		Role:     role,
	}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)

	dup := &models.User{Username: "somchai", Password: "x", FullName: "Another", Phone: "0822222222", Role: models.RoleCustomer}
	err := db.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreateUserDuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)

	dup := &models.User{Username: "somying", Password: "x", FullName: "Another", Phone: "0811111111", Role: models.RoleCustomer}
	err := db.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, ErrDuplicatePhone)
}

func TestUpdateUserClearedPhoneStoredAsNull(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)
	b := createTestUser(t, db, "somying", "0822222222", models.RoleCustomer)

	// Two users clearing their phone must not collide on the unique index.
	_, err := db.UpdateUser(ctx, a.ID, map[string]any{"phone": ""})
	require.NoError(t, err)
	_, err = db.UpdateUser(ctx, b.ID, map[string]any{"phone": ""})
	require.NoError(t, err)

	// An empty phone never resolves to a stored row.
	_, err = db.GetUserByPhone(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserByPhone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)

	user, err := db.GetUserByPhone(ctx, "0811111111")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "somchai", user.Username)

	_, err = db.GetUserByPhone(ctx, "0899999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsersRoleFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "cust1", "0811111111", models.RoleCustomer)
	createTestUser(t, db, "cust2", "0822222222", models.RoleCustomer)
	createTestUser(t, db, "tech1", "0833333333", models.RoleTechnician)

	all, err := db.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	techs, err := db.ListUsers(ctx, models.RoleTechnician)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, "tech1", techs[0].Username)
}

func TestUpdateUserPartial(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)

	updated, err := db.UpdateUser(ctx, user.ID, map[string]any{
		"full_name": "Somchai Jaidee",
		"role":      models.RoleTechnician,
	})
	require.NoError(t, err)
	assert.Equal(t, "Somchai Jaidee", updated.FullName)
	assert.Equal(t, models.RoleTechnician, updated.Role)
	// Untouched fields survive.
	assert.Equal(t, "somchai", updated.Username)
	assert.Equal(t, "0811111111", updated.Phone)
}

func TestUpdateUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.UpdateUser(context.Background(), 9999, map[string]any{"full_name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "somchai", "0811111111", models.RoleCustomer)
	require.NoError(t, db.DeleteUser(ctx, user.ID))

	_, err := db.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, user.ID), ErrNotFound)
}

func TestListTechnicianLoad(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tech := createTestUser(t, db, "tech1", "0833333333", models.RoleTechnician)
	idle := createTestUser(t, db, "tech2", "0844444444", models.RoleTechnician)
	createTestUser(t, db, "cust1", "0811111111", models.RoleCustomer)

	date := time.Date(2026, 9, 10, 9, 0, 0, 0, time.Local)
	for _, status := range []string{models.StatusConfirmed, models.StatusInProgress, models.StatusCancelled, models.StatusDone} {
		b := &models.Booking{
			CustomerName: "Customer",
			Phone:        "0811111111",
			BookingDate:  date,
			Status:       status,
			TechnicianID: &tech.ID,
		}
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	loads, err := db.ListTechnicianLoad(ctx, date)
	require.NoError(t, err)
	require.Len(t, loads, 2)

	byID := map[int64]int64{}
	for _, l := range loads {
		byID[l.Technician.ID] = l.ActiveBookings
	}
	// Cancelled and completed bookings do not count against the load.
	assert.Equal(t, int64(2), byID[tech.ID])
	assert.Equal(t, int64(0), byID[idle.ID])
}
