package models

// Booking statuses are stored verbatim as the Thai labels the business uses.
const (
	StatusPending    = "รอยืนยัน"       // awaiting confirmation
	StatusConfirmed  = "ยืนยันแล้ว"     // confirmed
	StatusInProgress = "กำลังดำเนินการ" // work in progress
	StatusDone       = "เสร็จสิ้น"      // completed
	StatusCancelled  = "ยกเลิก"        // cancelled
)

// AllStatuses lists every valid booking status.
var AllStatuses = []string{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusDone,
	StatusCancelled,
}

const (
	RoleCustomer    = "CUSTOMER"
	RoleUser        = "USER" // legacy alias of CUSTOMER, kept for old accounts
	RoleAdmin       = "ADMIN"
	RoleCoordinator = "COORDINATOR"
	RoleTechnician  = "TECHNICIAN"
)

// TimeSlots are the three bookable slots per day. Availability is advisory:
// creation is never rejected for a taken slot, conflicts are resolved by the
// dispatcher.
var TimeSlots = []string{"09:00", "12:00", "15:00"}

const (
	// TokenTTL is the lifetime of an issued session token.
	TokenTTL = 24 * 60 * 60 // 1 day in seconds

	// SlotCacheTTL bounds staleness of the availability cache.
	SlotCacheTTL = 30 // seconds

	// LoginRateLimitRPS / LoginRateLimitBurst throttle credential guessing
	// per client address.
	LoginRateLimitRPS   = 1.0
	LoginRateLimitBurst = 5

	// SyncQueueSize is the buffer of the sheets worker channel.
	SyncQueueSize = 128

	// MaxUploadBytes caps booking image uploads.
	MaxUploadBytes = 10 << 20
)

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidRole reports whether r is a known user role.
func ValidRole(r string) bool {
	switch r {
	case RoleCustomer, RoleUser, RoleAdmin, RoleCoordinator, RoleTechnician:
		return true
	}
	return false
}

// IsCustomerRole reports whether the role is customer-like (CUSTOMER or the
// legacy USER) as opposed to staff.
func IsCustomerRole(r string) bool {
	return r == RoleCustomer || r == RoleUser
}

// IsStaffRole reports whether the role may operate on arbitrary bookings.
func IsStaffRole(r string) bool {
	return r == RoleAdmin || r == RoleCoordinator || r == RoleTechnician
}
