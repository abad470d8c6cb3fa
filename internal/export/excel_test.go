package export

import (
	"testing"
	"time"

	"vinylbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingsWorkbook(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	bookings := []*models.Booking{
		{
			ID:           1,
			CustomerName: "Somchai",
			Phone:        "0811111111",
			ServiceType:  "ติดฟิล์ม",
			BookingDate:  time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC),
			Status:       models.StatusConfirmed,
			Technician:   &models.UserSummary{FullName: "Tech One"},
		},
		{
			ID:          2,
			Phone:       "0822222222",
			BookingDate: time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC),
			Status:      models.StatusPending,
		},
	}

	f, err := BookingsWorkbook(bookings, from, to)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "01.09.2026")

	header, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	name, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Somchai", name)

	slot, err := f.GetCellValue(sheetName, "F3")
	require.NoError(t, err)
	assert.Equal(t, "09:00", slot)

	tech, err := f.GetCellValue(sheetName, "H3")
	require.NoError(t, err)
	assert.Equal(t, "Tech One", tech)

	status, err := f.GetCellValue(sheetName, "G4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)
}
