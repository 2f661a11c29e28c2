package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPGStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	store := NewPGStore(pool)
	assert.NotNil(t, store)
}

func TestMapError(t *testing.T) {
	testCases := []struct {
		name   string
		code   string
		target error
	}{
		{name: "serialization failure", code: "40001", target: ErrSerialization},
		{name: "deadlock", code: "40P01", target: ErrSerialization},
		{name: "unique violation", code: "23505", target: domain.ErrConstraintViolation},
		{name: "foreign key violation", code: "23503", target: domain.ErrConstraintViolation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tc.code, ConstraintName: "bookings_booking_number_key"}
			err := mapError(fmt.Errorf("commit tx: %w", pgErr))

			assert.True(t, errors.Is(err, tc.target))
			var original *pgconn.PgError
			assert.True(t, errors.As(err, &original))
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}

func night(s string) time.Time {
	t, err := domain.ParseNight(s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedRoom(t *testing.T, s *MemoryStore) *domain.Room {
	t.Helper()
	room := &domain.Room{Name: "Standard", TotalUnits: 2, Capacity: 2, PricePerNightCents: 9000, Active: true}
	require.NoError(t, s.CreateRoom(context.Background(), room))
	return room
}

func TestMemoryStore_InTxRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	failure := errors.New("abort")
	err := s.InTx(ctx, func(ctx context.Context, q Queries) error {
		b := &domain.Booking{BookingNumber: "BK1", RoomID: room.ID, CheckIn: night("2026-01-10"), CheckOut: night("2026-01-11"), Status: domain.BookingStatusPending}
		require.NoError(t, q.InsertBooking(ctx, b))
		return failure
	})

	assert.Equal(t, failure, err)
	_, err = s.GetBookingByNumber(ctx, "BK1")
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))
}

func TestMemoryStore_InTxCommits(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, q Queries) error {
		return q.InsertBooking(ctx, &domain.Booking{BookingNumber: "BK1", RoomID: room.ID, CheckIn: night("2026-01-10"), CheckOut: night("2026-01-12"), Status: domain.BookingStatusPending})
	})
	require.NoError(t, err)

	active, err := s.ListActiveBookings(ctx, room.ID, night("2026-01-11"), night("2026-01-13"))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	active, err = s.ListActiveBookings(ctx, room.ID, night("2026-01-12"), night("2026-01-13"))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryStore_DuplicateBookingNumber(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	b := domain.Booking{BookingNumber: "BK-DUP", RoomID: room.ID, CheckIn: night("2026-01-10"), CheckOut: night("2026-01-11"), Status: domain.BookingStatusPending}
	first, second := b, b
	require.NoError(t, s.InsertBooking(ctx, &first))

	err := s.InsertBooking(ctx, &second)
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
}

func TestMemoryStore_DeleteReferencedRoom(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	require.NoError(t, s.InsertBooking(ctx, &domain.Booking{BookingNumber: "BK1", RoomID: room.ID, CheckIn: night("2026-01-10"), CheckOut: night("2026-01-11"), Status: domain.BookingStatusCancelled}))

	err := s.DeleteRoom(ctx, room.ID)
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))

	_, err = s.GetRoom(ctx, room.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_UpsertOverride(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertOverride(ctx, &domain.AvailabilityOverride{RoomID: room.ID, Date: night("2026-02-14"), AvailableUnits: 5}))
	require.NoError(t, s.UpsertOverride(ctx, &domain.AvailabilityOverride{RoomID: room.ID, Date: night("2026-02-14").Add(10 * time.Hour), AvailableUnits: 1}))

	overrides, err := s.ListOverrides(ctx, room.ID, night("2026-02-01"), night("2026-03-01"))
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, 1, overrides[0].AvailableUnits)

	require.NoError(t, s.DeleteOverride(ctx, room.ID, night("2026-02-14")))
	overrides, err = s.ListOverrides(ctx, room.ID, night("2026-02-01"), night("2026-03-01"))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestMemoryStore_ListDivergentGroups(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	insert := func(number, group string, status domain.BookingStatus) {
		require.NoError(t, s.InsertBooking(ctx, &domain.Booking{BookingNumber: number, GroupID: group, RoomID: room.ID,
			CheckIn: night("2026-01-10"), CheckOut: night("2026-01-11"), Status: status}))
	}
	insert("A1", "A", domain.BookingStatusPending)
	insert("A2", "A", domain.BookingStatusConfirmed)
	insert("B1", "B", domain.BookingStatusPending)
	insert("B2", "B", domain.BookingStatusPending)

	groups, err := s.ListDivergentGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, groups)
}

func TestMemoryStore_DeleteCancelledBefore(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertBooking(ctx, &domain.Booking{BookingNumber: "OLD", RoomID: room.ID, Status: domain.BookingStatusCancelled, CancelledAt: &old,
		CheckIn: night("2025-01-10"), CheckOut: night("2025-01-11")}))
	require.NoError(t, s.InsertBooking(ctx, &domain.Booking{BookingNumber: "NEW", RoomID: room.ID, Status: domain.BookingStatusCancelled, CancelledAt: &recent,
		CheckIn: night("2026-09-10"), CheckOut: night("2026-09-11")}))

	n, err := s.DeleteCancelledBefore(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetBookingByNumber(ctx, "NEW")
	assert.NoError(t, err)
}
