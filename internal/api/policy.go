package api

import (
	"vinylbook/internal/auth"
	"vinylbook/internal/models"
)

// fieldPolicy is the per-role booking write policy: which JSON fields a role
// may set on update, and which status values it may write. A nil
// statusValues set means any status is accepted.
type fieldPolicy struct {
	fields       map[string]bool
	statusValues map[string]bool
}

func (p fieldPolicy) allowsField(name string) bool {
	return p.fields[name]
}

// allowsStatus reports whether the role may write this status value. A
// disallowed value is dropped from the update, not rejected.
func (p fieldPolicy) allowsStatus(value string) bool {
	if p.statusValues == nil {
		return true
	}
	return p.statusValues[value]
}

var (
	// Staff set every field, including technician assignment and any
	// status.
	staffPolicy = fieldPolicy{
		fields: set(
			"customer_name", "phone", "service_type", "booking_date",
			"sub_district", "district", "province", "postcode",
			"address_detail", "status", "notes", "image_url", "technicianId",
		),
	}

	// Customers may reschedule, annotate, and cancel - nothing else.
	customerPolicy = fieldPolicy{
		fields:       set("status", "booking_date", "notes"),
		statusValues: set(models.StatusCancelled),
	}
)

// policyFor resolves the booking write policy for a role.
func policyFor(role string) fieldPolicy {
	if models.IsStaffRole(role) {
		return staffPolicy
	}
	return customerPolicy
}

// ownsBooking resolves ownership via the dual key: the linked customer id
// when present, else a phone match. The phone fallback exists for bookings
// created before accounts were linked and must be preserved.
func ownsBooking(session *auth.Session, booking *models.Booking) bool {
	if session == nil {
		return false
	}
	if booking.CustomerID != nil && *booking.CustomerID == session.UserID {
		return true
	}
	return booking.Phone != "" && booking.Phone == session.Phone
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
