package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, booking_number, group_id, room_id, check_in, check_out, guest_name, guest_email, guest_phone,
	guests, special_requests, price_per_night_cents, total_price_cents, status, status_history, admin_notes,
	created_at, updated_at, confirmed_at, cancelled_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b       domain.Booking
		history []byte
	)
	if err := row.Scan(&b.ID, &b.BookingNumber, &b.GroupID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.Guests, &b.SpecialRequests, &b.PricePerNightCents, &b.TotalPriceCents, &b.Status, &history, &b.AdminNotes,
		&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.CancelledAt); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &b.StatusHistory); err != nil {
			return nil, fmt.Errorf("decode status history of booking %d: %w", b.ID, err)
		}
	}
	return &b, nil
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func encodeHistory(history []domain.StatusChange) ([]byte, error) {
	if history == nil {
		history = []domain.StatusChange{}
	}
	return json.Marshal(history)
}

func (q *pgQueries) ListActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	rows, err := q.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id=$1 AND status IN ($2, $3) AND check_in < $5 AND check_out > $4`,
		roomID, domain.BookingStatusPending, domain.BookingStatusConfirmed, domain.Night(from), domain.Night(to))
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (q *pgQueries) InsertBooking(ctx context.Context, b *domain.Booking) error {
	history, err := encodeHistory(b.StatusHistory)
	if err != nil {
		return err
	}
	err = q.db.QueryRow(ctx, `INSERT INTO bookings (booking_number, group_id, room_id, check_in, check_out, guest_name, guest_email,
			guest_phone, guests, special_requests, price_per_night_cents, total_price_cents, status, status_history, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`,
		b.BookingNumber, b.GroupID, b.RoomID, domain.Night(b.CheckIn), domain.Night(b.CheckOut), b.GuestName, b.GuestEmail,
		b.GuestPhone, b.Guests, b.SpecialRequests, b.PricePerNightCents, b.TotalPriceCents, b.Status, history, b.AdminNotes).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return mapError(err)
}

func (q *pgQueries) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(q.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (q *pgQueries) GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	b, err := scanBooking(q.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_number=$1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (q *pgQueries) ListBookingsByGroup(ctx context.Context, groupID string) ([]domain.Booking, error) {
	rows, err := q.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE group_id=$1 ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (q *pgQueries) ListBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR room_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, string(filter.Status), filter.RoomID, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (q *pgQueries) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	history, err := encodeHistory(b.StatusHistory)
	if err != nil {
		return err
	}
	err = q.db.QueryRow(ctx, `UPDATE bookings
		SET status=$2, status_history=$3, admin_notes=$4, confirmed_at=$5, cancelled_at=$6, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		b.ID, b.Status, history, b.AdminNotes, b.ConfirmedAt, b.CancelledAt).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrBookingNotFound
	}
	return mapError(err)
}

func (q *pgQueries) ListDivergentGroups(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, `SELECT group_id FROM bookings
		WHERE group_id <> ''
		GROUP BY group_id
		HAVING COUNT(DISTINCT status) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (q *pgQueries) DeleteCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := q.db.Exec(ctx, `DELETE FROM bookings WHERE status=$1 AND cancelled_at < $2`, domain.BookingStatusCancelled, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
