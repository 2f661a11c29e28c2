package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

// ErrSerialization is returned when a serializable transaction lost a
// conflict with a concurrent one. The whole unit of work may be retried.
var ErrSerialization = errors.New("serialization failure")

type RoomQueries interface {
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListRooms(ctx context.Context, activeOnly bool) ([]domain.Room, error)
	CreateRoom(ctx context.Context, room *domain.Room) error
	UpdateRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, id int64) error
}

type CalendarQueries interface {
	ListOverrides(ctx context.Context, roomID int64, from, to time.Time) ([]domain.AvailabilityOverride, error)
	UpsertOverride(ctx context.Context, override *domain.AvailabilityOverride) error
	DeleteOverride(ctx context.Context, roomID int64, date time.Time) error
	ListBlockedDates(ctx context.Context, roomID int64, from, to time.Time) ([]domain.BlockedDate, error)
	UpsertBlockedDate(ctx context.Context, blocked *domain.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, roomID int64, date time.Time) error
}

type BookingFilter struct {
	Status domain.BookingStatus
	RoomID int64
	Limit  int
}

type BookingQueries interface {
	ListActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error)
	InsertBooking(ctx context.Context, booking *domain.Booking) error
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error)
	ListBookingsByGroup(ctx context.Context, groupID string) ([]domain.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, booking *domain.Booking) error
	ListDivergentGroups(ctx context.Context) ([]string, error)
	DeleteCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Queries interface {
	RoomQueries
	CalendarQueries
	BookingQueries
}

// Store is Queries plus a serializable unit of work. fn must only use the
// Queries it is handed; the transaction commits when fn returns nil and
// leaves no trace otherwise.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}
