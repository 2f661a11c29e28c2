package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// Active reports whether a booking in this status occupies its nights.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// groupPriority orders statuses for reservation group reconciliation.
var groupPriority = map[BookingStatus]int{
	BookingStatusCompleted: 5,
	BookingStatusConfirmed: 4,
	BookingStatusPending:   3,
	BookingStatusCancelled: 2,
	BookingStatusNoShow:    1,
}

// ResolveGroupStatus picks the most advanced status present.
func ResolveGroupStatus(statuses []BookingStatus) BookingStatus {
	var best BookingStatus
	for _, s := range statuses {
		if groupPriority[s] > groupPriority[best] {
			best = s
		}
	}
	return best
}

type StatusChange struct {
	From BookingStatus `json:"from"`
	To   BookingStatus `json:"to"`
	At   time.Time     `json:"at"`
}

type Booking struct {
	ID                 int64
	BookingNumber      string
	GroupID            string
	RoomID             int64
	CheckIn            time.Time
	CheckOut           time.Time
	GuestName          string
	GuestEmail         string
	GuestPhone         string
	Guests             int
	SpecialRequests    string
	PricePerNightCents int64
	TotalPriceCents    int64
	Status             BookingStatus
	StatusHistory      []StatusChange
	AdminNotes         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
}

// Nights is the number of nights the booking occupies.
func (b *Booking) Nights() int {
	return NightCount(b.CheckIn, b.CheckOut)
}

// Covers reports whether the booking occupies the given night.
func (b *Booking) Covers(night time.Time) bool {
	n := Night(night)
	return !n.Before(Night(b.CheckIn)) && n.Before(Night(b.CheckOut))
}

// Overlaps reports whether the booking shares at least one night with [from, to).
func (b *Booking) Overlaps(from, to time.Time) bool {
	return Night(b.CheckIn).Before(Night(to)) && Night(from).Before(Night(b.CheckOut))
}

// Transition moves the booking to status to if the state machine allows it.
func (b *Booking) Transition(to BookingStatus, at time.Time) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, b.Status, to)
	}
	b.setStatus(to, at)
	return nil
}

// ForceStatus sets the status without consulting the state machine. Used by
// reservation group reconciliation; history is still recorded.
func (b *Booking) ForceStatus(to BookingStatus, at time.Time) {
	if b.Status == to {
		return
	}
	b.setStatus(to, at)
}

func (b *Booking) setStatus(to BookingStatus, at time.Time) {
	at = at.UTC()
	history := make([]StatusChange, len(b.StatusHistory), len(b.StatusHistory)+1)
	copy(history, b.StatusHistory)
	b.StatusHistory = append(history, StatusChange{From: b.Status, To: to, At: at})

	switch to {
	case BookingStatusConfirmed:
		b.ConfirmedAt = &at
	case BookingStatusCancelled:
		b.CancelledAt = &at
	}
	b.Status = to
	b.UpdatedAt = at
}
