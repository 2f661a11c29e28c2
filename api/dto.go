package api

import (
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

type roomResponse struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	TotalUnits         int    `json:"total_units"`
	Capacity           int    `json:"capacity"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Active             bool   `json:"active"`
}

type roomQuantityResponse struct {
	roomResponse
	Quantity int `json:"quantity"`
}

// bookingResponse is what a guest sees. Admin notes and the status history
// stay internal.
type bookingResponse struct {
	BookingNumber      string `json:"booking_number"`
	GroupID            string `json:"group_id"`
	RoomID             int64  `json:"room_id"`
	CheckIn            string `json:"check_in"`
	CheckOut           string `json:"check_out"`
	Nights             int    `json:"nights"`
	GuestName          string `json:"guest_name"`
	GuestEmail         string `json:"guest_email"`
	GuestPhone         string `json:"guest_phone,omitempty"`
	Guests             int    `json:"guests"`
	SpecialRequests    string `json:"special_requests,omitempty"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	TotalPriceCents    int64  `json:"total_price_cents"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
}

type statusChangeResponse struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	At   string `json:"at"`
}

type adminBookingResponse struct {
	bookingResponse
	ID            int64                  `json:"id"`
	AdminNotes    string                 `json:"admin_notes"`
	StatusHistory []statusChangeResponse `json:"status_history"`
	ConfirmedAt   *string                `json:"confirmed_at"`
	CancelledAt   *string                `json:"cancelled_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

func toRoomResponse(r domain.Room) roomResponse {
	return roomResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		TotalUnits:         r.TotalUnits,
		Capacity:           r.Capacity,
		PricePerNightCents: r.PricePerNightCents,
		Active:             r.Active,
	}
}

func toRoomResponses(rooms []domain.Room) []roomResponse {
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResponse(r))
	}
	return out
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		BookingNumber:      b.BookingNumber,
		GroupID:            b.GroupID,
		RoomID:             b.RoomID,
		CheckIn:            b.CheckIn.Format(domain.DateLayout),
		CheckOut:           b.CheckOut.Format(domain.DateLayout),
		Nights:             b.Nights(),
		GuestName:          b.GuestName,
		GuestEmail:         b.GuestEmail,
		GuestPhone:         b.GuestPhone,
		Guests:             b.Guests,
		SpecialRequests:    b.SpecialRequests,
		PricePerNightCents: b.PricePerNightCents,
		TotalPriceCents:    b.TotalPriceCents,
		Status:             string(b.Status),
		CreatedAt:          formatTime(b.CreatedAt),
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func toAdminBookingResponse(b domain.Booking) adminBookingResponse {
	history := make([]statusChangeResponse, 0, len(b.StatusHistory))
	for _, h := range b.StatusHistory {
		history = append(history, statusChangeResponse{From: string(h.From), To: string(h.To), At: formatTime(h.At)})
	}
	return adminBookingResponse{
		bookingResponse: toBookingResponse(b),
		ID:              b.ID,
		AdminNotes:      b.AdminNotes,
		StatusHistory:   history,
		ConfirmedAt:     formatTimePtr(b.ConfirmedAt),
		CancelledAt:     formatTimePtr(b.CancelledAt),
		UpdatedAt:       formatTime(b.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
