package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vinylbook/internal/auth"
	"vinylbook/internal/database"
	"vinylbook/internal/events"
	"vinylbook/internal/export"
	"vinylbook/internal/metrics"
	"vinylbook/internal/models"
)

// bookingDateLayouts are accepted on input; the SPA sends local timestamps
// without a zone ("2025-01-31T09:00:00").
var bookingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseBookingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range bookingDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid booking_date: %q", raw)
}

type createBookingRequest struct {
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone"`
	ServiceType   string `json:"service_type"`
	BookingDate   string `json:"booking_date"`
	SubDistrict   string `json:"sub_district"`
	District      string `json:"district"`
	Province      string `json:"province"`
	Postcode      string `json:"postcode"`
	AddressDetail string `json:"address_detail"`
	Notes         string `json:"notes"`
	ImageURL      string `json:"image_url"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	imageURL := ""

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(models.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		req = createBookingRequest{
			CustomerName:  r.FormValue("customer_name"),
			Phone:         r.FormValue("phone"),
			ServiceType:   r.FormValue("service_type"),
			BookingDate:   r.FormValue("booking_date"),
			SubDistrict:   r.FormValue("sub_district"),
			District:      r.FormValue("district"),
			Province:      r.FormValue("province"),
			Postcode:      r.FormValue("postcode"),
			AddressDetail: r.FormValue("address_detail"),
			Notes:         r.FormValue("notes"),
			ImageURL:      r.FormValue("image_url"),
		}

		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			url, err := s.store.Save(r.Context(), header.Filename,
				header.Header.Get("Content-Type"), header.Size, file)
			if err != nil {
				writeInternalError(w, "Error storing image", err)
				return
			}
			imageURL = url
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if imageURL == "" {
		imageURL = req.ImageURL
	}

	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	bookingDate, err := parseBookingDate(req.BookingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking_date format")
		return
	}

	booking := &models.Booking{
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		ServiceType:   req.ServiceType,
		BookingDate:   bookingDate,
		SubDistrict:   req.SubDistrict,
		District:      req.District,
		Province:      req.Province,
		Postcode:      req.Postcode,
		AddressDetail: req.AddressDetail,
		Notes:         req.Notes,
		ImageURL:      imageURL,
		Status:        models.StatusPending,
	}

	// Link the booking when the caller is authenticated; anonymous
	// submissions stay phone-owned.
	if session := auth.SessionFrom(r.Context()); session != nil {
		booking.CustomerID = &session.UserID
	}

	if err := s.db.CreateBooking(r.Context(), booking); err != nil {
		writeInternalError(w, "Error creating booking", err)
		return
	}

	metrics.IncBookingCreated()
	s.invalidateSlots(r, booking.BookingDate)
	_ = s.bus.PublishJSON(events.EventBookingCreated, bookingEvent(booking, ""))

	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())

	var bookings []*models.Booking
	var err error
	if models.IsStaffRole(session.Role) {
		bookings, err = s.db.ListBookings(r.Context())
	} else {
		bookings, err = s.db.ListBookingsForOwner(r.Context(), session.UserID, session.Phone)
	}
	if err != nil {
		writeInternalError(w, "Error fetching bookings", err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

type updateBookingRequest struct {
	CustomerName  *string `json:"customer_name"`
	Phone         *string `json:"phone"`
	ServiceType   *string `json:"service_type"`
	BookingDate   *string `json:"booking_date"`
	SubDistrict   *string `json:"sub_district"`
	District      *string `json:"district"`
	Province      *string `json:"province"`
	Postcode      *string `json:"postcode"`
	AddressDetail *string `json:"address_detail"`
	Notes         *string `json:"notes"`
	ImageURL      *string `json:"image_url"`
	Status        *string `json:"status"`
	TechnicianID  *int64  `json:"technicianId"`
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.db.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		writeInternalError(w, "Error updating booking", err)
		return
	}

	session := auth.SessionFrom(r.Context())
	if models.IsCustomerRole(session.Role) && !ownsBooking(session, booking) {
		writeError(w, http.StatusForbidden, "Not authorized to update this booking")
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	policy := policyFor(session.Role)
	fields := make(map[string]any)

	setString := func(jsonName, column string, val *string) {
		if val != nil && policy.allowsField(jsonName) {
			fields[column] = *val
		}
	}
	setString("customer_name", "customer_name", req.CustomerName)
	setString("phone", "phone", req.Phone)
	setString("service_type", "service_type", req.ServiceType)
	setString("sub_district", "sub_district", req.SubDistrict)
	setString("district", "district", req.District)
	setString("province", "province", req.Province)
	setString("postcode", "postcode", req.Postcode)
	setString("address_detail", "address_detail", req.AddressDetail)
	setString("notes", "notes", req.Notes)
	setString("image_url", "image_url", req.ImageURL)

	if req.TechnicianID != nil && policy.allowsField("technicianId") {
		fields["technician_id"] = *req.TechnicianID
	}

	var newDate *time.Time
	if req.BookingDate != nil && policy.allowsField("booking_date") {
		parsed, err := parseBookingDate(*req.BookingDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking_date format")
			return
		}
		fields["booking_date"] = parsed
		newDate = &parsed
	}

	// A status value the role may not write is dropped from the update,
	// not rejected: the rest of the payload still applies.
	if req.Status != nil && policy.allowsField("status") && policy.allowsStatus(*req.Status) {
		fields["status"] = *req.Status
	}

	updated, err := s.db.UpdateBooking(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		writeInternalError(w, "Error updating booking", err)
		return
	}

	s.invalidateSlots(r, booking.BookingDate)
	if newDate != nil {
		s.invalidateSlots(r, *newDate)
	}
	if status, ok := fields["status"].(string); ok && status != booking.Status {
		eventType := events.EventBookingStatusChanged
		if status == models.StatusCancelled {
			eventType = events.EventBookingCancelled
		}
		_ = s.bus.PublishJSON(eventType, bookingEvent(updated, session.Role))
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.db.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		writeInternalError(w, "Error deleting booking", err)
		return
	}

	session := auth.SessionFrom(r.Context())
	if models.IsCustomerRole(session.Role) {
		if !ownsBooking(session, booking) {
			writeError(w, http.StatusForbidden, "Not authorized to delete this booking")
			return
		}
		if booking.Status == models.StatusDone {
			writeError(w, http.StatusForbidden, "Cannot delete completed booking")
			return
		}
	}

	if err := s.db.DeleteBooking(r.Context(), id); err != nil {
		writeInternalError(w, "Error deleting booking", err)
		return
	}

	s.invalidateSlots(r, booking.BookingDate)
	_ = s.bus.PublishJSON(events.EventBookingDeleted, bookingEvent(booking, session.Role))

	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking deleted successfully"})
}

func (s *HTTPServer) handleBookingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetBookingStats(r.Context())
	if err != nil {
		writeInternalError(w, "Error fetching stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleSearchBookings(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.PathValue("phone"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	bookings, err := s.db.SearchBookingsByPhone(r.Context(), phone)
	if err != nil {
		writeInternalError(w, "Error searching bookings", err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// handleAvailability answers which of the fixed daily slots are still open
// on a date. Advisory only: booking creation does not consult it, the
// dispatcher resolves double bookings.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	booked, ok, err := s.slots.GetSlots(r.Context(), dateStr)
	if err != nil || !ok {
		booked, err = s.db.GetBookedSlots(r.Context(), date)
		if err != nil {
			writeInternalError(w, "Error checking availability", err)
			return
		}
		_ = s.slots.SetSlots(r.Context(), dateStr, booked)
	}

	bookedSet := make(map[string]bool, len(booked))
	for _, slot := range booked {
		bookedSet[slot] = true
	}

	result := models.SlotAvailability{
		Date:      dateStr,
		Booked:    []string{},
		Available: []string{},
	}
	for _, slot := range models.TimeSlots {
		if bookedSet[slot] {
			result.Booked = append(result.Booked, slot)
		} else {
			result.Available = append(result.Available, slot)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from", time.Now().AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r, "to", time.Now().AddDate(0, 2, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}

	bookings, err := s.db.GetBookingsByDateRange(r.Context(), from, to)
	if err != nil {
		writeInternalError(w, "Error exporting bookings", err)
		return
	}

	f, err := export.BookingsWorkbook(bookings, from, to)
	if err != nil {
		writeInternalError(w, "Error exporting bookings", err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("bookings_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		s.log.Error().Err(err).Msg("write xlsx export")
	}
}

func parseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *HTTPServer) invalidateSlots(r *http.Request, date time.Time) {
	if err := s.slots.Invalidate(r.Context(), date.Format("2006-01-02")); err != nil {
		s.log.Warn().Err(err).Msg("invalidate slot cache")
	}
}

func bookingEvent(b *models.Booking, changedBy string) events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:    b.ID,
		CustomerName: b.CustomerName,
		Phone:        b.Phone,
		ServiceType:  b.ServiceType,
		Status:       b.Status,
		BookingDate:  b.BookingDate,
		ChangedBy:    changedBy,
	}
}
