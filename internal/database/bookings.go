package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinylbook/internal/models"
)

const bookingColumns = `b.id, b.customer_name, b.phone, b.service_type, b.booking_date,
       b.sub_district, b.district, b.province, b.postcode, b.address_detail,
       b.notes, b.image_url, b.status, b.customer_id, b.technician_id,
       b.created_at, b.updated_at`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				customer_name, phone, service_type, booking_date,
				sub_district, district, province, postcode, address_detail,
				notes, image_url, status, customer_id, technician_id,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	result, err := db.ExecContext(ctx, query,
		booking.CustomerName,
		booking.Phone,
		booking.ServiceType,
		booking.BookingDate,
		booking.SubDistrict,
		booking.District,
		booking.Province,
		booking.Postcode,
		booking.AddressDetail,
		booking.Notes,
		booking.ImageURL,
		booking.Status,
		booking.CustomerID,
		booking.TechnicianID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ?`
	row := db.QueryRowContext(ctx, query, id)

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// bookingIdentityColumns and bookingIdentityJoins extend a bookings query
// with the customer's and technician's user summaries.
const bookingIdentityColumns = `,
	                 c.id, c.username, c.full_name, COALESCE(c.phone, ''),
	                 t.id, t.username, t.full_name, COALESCE(t.phone, '')`

const bookingIdentityJoins = `
              LEFT JOIN users c ON c.id = b.customer_id
              LEFT JOIN users t ON t.id = b.technician_id`

// ListBookings returns all bookings with customer and technician identities
// attached, ordered by booking date ascending. Staff-only view.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingIdentityColumns + `
              FROM bookings b` + bookingIdentityJoins + `
              ORDER BY b.booking_date ASC`
	return db.queryBookingsWithIdentities(ctx, query)
}

func (db *DB) queryBookingsWithIdentities(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var custID, techID sql.NullInt64
		var custUser, custName, custPhone sql.NullString
		var techUser, techName, techPhone sql.NullString
		var cID, tID sql.NullInt64
		err := rows.Scan(
			&b.ID, &b.CustomerName, &b.Phone, &b.ServiceType, &b.BookingDate,
			&b.SubDistrict, &b.District, &b.Province, &b.Postcode, &b.AddressDetail,
			&b.Notes, &b.ImageURL, &b.Status, &custID, &techID,
			&b.CreatedAt, &b.UpdatedAt,
			&cID, &custUser, &custName, &custPhone,
			&tID, &techUser, &techName, &techPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		setOptionalID(&b.CustomerID, custID)
		setOptionalID(&b.TechnicianID, techID)
		if cID.Valid {
			b.Customer = &models.UserSummary{ID: cID.Int64, Username: custUser.String, FullName: custName.String, Phone: custPhone.String}
		}
		if tID.Valid {
			b.Technician = &models.UserSummary{ID: tID.Int64, Username: techUser.String, FullName: techName.String, Phone: techPhone.String}
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListBookingsForOwner returns bookings owned via the dual key: linked
// customer id, or the owner's phone for records created before accounts
// were linked.
func (db *DB) ListBookingsForOwner(ctx context.Context, userID int64, phone string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b
              WHERE b.customer_id = ? OR b.phone = ?
              ORDER BY b.booking_date ASC`
	return db.queryBookings(ctx, query, userID, phone)
}

// SearchBookingsByPhone is the public self-service lookup: exact phone
// match, most recent booking date first.
func (db *DB) SearchBookingsByPhone(ctx context.Context, phone string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b
              WHERE b.phone = ?
              ORDER BY b.booking_date DESC`
	return db.queryBookings(ctx, query, phone)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var custID, techID sql.NullInt64
	err := row.Scan(
		&b.ID, &b.CustomerName, &b.Phone, &b.ServiceType, &b.BookingDate,
		&b.SubDistrict, &b.District, &b.Province, &b.Postcode, &b.AddressDetail,
		&b.Notes, &b.ImageURL, &b.Status, &custID, &techID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	setOptionalID(&b.CustomerID, custID)
	setOptionalID(&b.TechnicianID, techID)
	return b, nil
}

func setOptionalID(dst **int64, src sql.NullInt64) {
	if src.Valid {
		v := src.Int64
		*dst = &v
	}
}

// bookingUpdateColumns fixes the column order for partial booking updates.
var bookingUpdateColumns = []string{
	"customer_name", "phone", "service_type", "booking_date",
	"sub_district", "district", "province", "postcode", "address_detail",
	"notes", "image_url", "status", "technician_id",
}

// UpdateBooking applies a partial update. fields keys must be column names
// from bookingUpdateColumns; unknown keys are ignored.
func (db *DB) UpdateBooking(ctx context.Context, id int64, fields map[string]any) (*models.Booking, error) {
	query := `UPDATE bookings SET updated_at = ?`
	args := []any{time.Now()}
	for _, col := range bookingUpdateColumns {
		if val, ok := fields[col]; ok {
			query += `, ` + col + ` = ?`
			args = append(args, val)
		}
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetBooking(ctx, id)
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBookingStats returns the total booking count and per-status counts.
func (db *DB) GetBookingStats(ctx context.Context) (*models.BookingStats, error) {
	stats := &models.BookingStats{ByStatus: make(map[string]int64)}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan booking stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// GetBookedSlots returns the time slots taken on a date, cancelled bookings
// excluded. Advisory only: creation does not consult this.
func (db *DB) GetBookedSlots(ctx context.Context, date time.Time) ([]string, error) {
	query := `SELECT DISTINCT strftime('%H:%M', b.booking_date) FROM bookings b
              WHERE date(b.booking_date) = date(?) AND b.status != ?
              ORDER BY 1`
	rows, err := db.QueryContext(ctx, query, date.Format("2006-01-02"), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// GetBookingsByDateRange returns bookings whose booking date falls inside
// [start, end], ordered by date, with customer and technician identities
// attached. Used by the xlsx export.
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingIdentityColumns + `
              FROM bookings b` + bookingIdentityJoins + `
              WHERE date(b.booking_date) >= date(?) AND date(b.booking_date) <= date(?)
              ORDER BY b.booking_date ASC`
	return db.queryBookingsWithIdentities(ctx, query, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
