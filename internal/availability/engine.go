package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

// Reader is the read side the engine needs. Both the pooled store and an
// open transaction satisfy it, so the booking coordinator can evaluate the
// same snapshot inside its isolation scope.
type Reader interface {
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListOverrides(ctx context.Context, roomID int64, from, to time.Time) ([]domain.AvailabilityOverride, error)
	ListBlockedDates(ctx context.Context, roomID int64, from, to time.Time) ([]domain.BlockedDate, error)
	ListActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error)
}

type Engine struct {
	reader Reader
}

func NewEngine(reader Reader) *Engine {
	return &Engine{reader: reader}
}

// MaxNights bounds any range the engine will evaluate.
const MaxNights = 365

// ValidateRange rejects empty, inverted or overlong stays.
func ValidateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return domain.Invalid("dates", "check_in and check_out are required")
	}
	in, out := domain.Night(checkIn), domain.Night(checkOut)
	if !out.After(in) {
		return domain.Invalid("check_out", "must be after check_in")
	}
	if out.After(in.AddDate(0, 0, MaxNights)) {
		return domain.Invalid("check_out", fmt.Sprintf("stay must not exceed %d nights", MaxNights))
	}
	return nil
}

// Load batch-reads everything touching [from, to) for room.
func Load(ctx context.Context, r Reader, room domain.Room, from, to time.Time) (*Snapshot, error) {
	from, to = domain.Night(from), domain.Night(to)

	overrides, err := r.ListOverrides(ctx, room.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	blocks, err := r.ListBlockedDates(ctx, room.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	bookings, err := r.ListActiveBookings(ctx, room.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return NewSnapshot(room, from, to, overrides, blocks, bookings), nil
}

func (e *Engine) snapshot(ctx context.Context, roomID int64, from, to time.Time) (*Snapshot, error) {
	room, err := e.reader.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return Load(ctx, e.reader, *room, from, to)
}

// Snapshot loads the room and its range data in one go.
func (e *Engine) Snapshot(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (*Snapshot, error) {
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return nil, err
	}
	return e.snapshot(ctx, roomID, checkIn, checkOut)
}

func (e *Engine) NightlyAvailability(ctx context.Context, roomID int64, date time.Time) (int, error) {
	night := domain.Night(date)
	s, err := e.snapshot(ctx, roomID, night, night.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	return s.Nightly(night, 0), nil
}

// IsRangeAvailable checks every night in [checkIn, checkOut). A non-zero
// excludeBookingID leaves that booking out of the occupancy count.
func (e *Engine) IsRangeAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	s, err := e.Snapshot(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return s.RangeAvailable(excludeBookingID), nil
}

func (e *Engine) MaxAvailableQuantity(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (int, error) {
	s, err := e.Snapshot(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	return s.MaxQuantity(), nil
}

func (e *Engine) Calendar(ctx context.Context, roomID int64, from, to time.Time) ([]NightAvailability, error) {
	s, err := e.Snapshot(ctx, roomID, from, to)
	if err != nil {
		return nil, err
	}
	return s.Calendar(), nil
}
