package booking

import (
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

// ErrConflict is returned once a caller gives up retrying OutcomeConflict.
var ErrConflict = errors.New("booking conflicted with a concurrent request")

type Outcome int

const (
	OutcomeCreated Outcome = iota
	// OutcomeConflict means a concurrent transaction won; retrying is safe.
	OutcomeConflict
	OutcomeUnavailable
	OutcomeRoomNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeConflict:
		return "conflict"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeRoomNotFound:
		return "room_not_found"
	}
	return "unknown"
}

// CreateResult is what CreateBooking returns for every expected outcome.
// Errors are reserved for invalid input and infrastructure failures.
type CreateResult struct {
	Outcome          Outcome
	Booking          *domain.Booking
	UnavailableNight time.Time
}

// Err maps non-success outcomes to the matching domain error.
func (r CreateResult) Err() error {
	switch r.Outcome {
	case OutcomeCreated:
		return nil
	case OutcomeUnavailable:
		return domain.ErrRoomNotAvailable
	case OutcomeRoomNotFound:
		return domain.ErrRoomNotFound
	}
	return ErrConflict
}
