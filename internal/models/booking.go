package models

import "time"

type Booking struct {
	ID            int64     `json:"id"`
	CustomerName  string    `json:"customer_name"`
	Phone         string    `json:"phone"`
	ServiceType   string    `json:"service_type"`
	BookingDate   time.Time `json:"booking_date"`
	SubDistrict   string    `json:"sub_district"`
	District      string    `json:"district"`
	Province      string    `json:"province"`
	Postcode      string    `json:"postcode"`
	AddressDetail string    `json:"address_detail"`
	Notes         string    `json:"notes"`
	ImageURL      string    `json:"image_url"`
	Status        string    `json:"status"`
	CustomerID    *int64    `json:"customerId"`
	TechnicianID  *int64    `json:"technicianId"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Related identities, populated only for staff listings.
	Customer   *UserSummary `json:"customer,omitempty"`
	Technician *UserSummary `json:"technician,omitempty"`
}

// Slot returns the booking's time slot ("09:00", "12:00", "15:00") derived
// from the booking timestamp.
func (b *Booking) Slot() string {
	return b.BookingDate.Format("15:04")
}

// BookingStats is the admin dashboard aggregate.
type BookingStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// SlotAvailability is the advisory availability answer for one date.
type SlotAvailability struct {
	Date      string   `json:"date"`
	Booked    []string `json:"booked"`
	Available []string `json:"available"`
}

// TechnicianLoad pairs a technician with their active bookings on a date.
type TechnicianLoad struct {
	Technician     UserSummary `json:"technician"`
	ActiveBookings int64       `json:"active_bookings"`
}
