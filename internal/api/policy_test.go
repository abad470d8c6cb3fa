package api

import (
	"testing"

	"vinylbook/internal/auth"
	"vinylbook/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		role        string
		field       string
		wantField   bool
		status      string
		wantStatus  bool
		description string
	}{
		{models.RoleCustomer, "notes", true, models.StatusCancelled, true, "customer may cancel"},
		{models.RoleCustomer, "booking_date", true, models.StatusConfirmed, false, "customer may not confirm"},
		{models.RoleCustomer, "phone", false, models.StatusDone, false, "customer may not edit phone"},
		{models.RoleUser, "status", true, models.StatusCancelled, true, "legacy USER behaves as customer"},
		{models.RoleUser, "technicianId", false, models.StatusInProgress, false, "legacy USER is not staff"},
		{models.RoleAdmin, "technicianId", true, models.StatusDone, true, "admin sets everything"},
		{models.RoleCoordinator, "phone", true, models.StatusConfirmed, true, "coordinator is staff"},
		{models.RoleTechnician, "status", true, models.StatusInProgress, true, "technician updates status"},
	}

	for _, tt := range tests {
		p := policyFor(tt.role)
		assert.Equal(t, tt.wantField, p.allowsField(tt.field), tt.description)
		assert.Equal(t, tt.wantStatus, p.allowsField("status") && p.allowsStatus(tt.status), tt.description)
	}
}

func TestOwnsBooking(t *testing.T) {
	userID := int64(7)
	otherID := int64(9)

	session := &auth.Session{UserID: userID, Phone: "0811111111", Role: models.RoleCustomer}

	assert.True(t, ownsBooking(session, &models.Booking{CustomerID: &userID}), "linked by id")
	assert.True(t, ownsBooking(session, &models.Booking{Phone: "0811111111"}), "legacy phone match")
	assert.False(t, ownsBooking(session, &models.Booking{CustomerID: &otherID, Phone: "0822222222"}))
	assert.False(t, ownsBooking(nil, &models.Booking{Phone: "0811111111"}), "anonymous owns nothing")
	assert.False(t, ownsBooking(&auth.Session{UserID: userID}, &models.Booking{}), "empty phones do not match")
}
