package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/availability"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Domenick1991/hotelbooking/internal/service/booking"

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (CreateResult, error)
	LookupBooking(ctx context.Context, bookingNumber, email string) ([]domain.Booking, error)
	CancelGuestBooking(ctx context.Context, bookingNumber, email string) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, id int64, input UpdateBookingInput) (*domain.Booking, error)
	ReconcileGroups(ctx context.Context) (int, error)
	CleanupCancelled(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	store              repository.Store
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	maxAttempts        int
	numbers            NumberGenerator
	now                func() time.Time
	log                logrus.FieldLogger
	tracer             trace.Tracer
}

type CreateBookingInput struct {
	RoomID          int64     `json:"room_id" validate:"required,gt=0"`
	CheckIn         time.Time `json:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" validate:"required"`
	GuestName       string    `json:"guest_name" validate:"required,max=200"`
	GuestEmail      string    `json:"guest_email" validate:"required,email,max=254"`
	GuestPhone      string    `json:"guest_phone" validate:"max=40"`
	Guests          int       `json:"guests" validate:"required,gte=1"`
	SpecialRequests string    `json:"special_requests" validate:"max=2000"`
	GroupID         string    `json:"group_id" validate:"max=64"`
}

// UpdateBookingInput is an admin patch; nil fields are left untouched.
type UpdateBookingInput struct {
	Status     *domain.BookingStatus
	AdminNotes *string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithMaxAttempts bounds internal retries of cancel/update transactions
// that lose a serialization conflict.
func WithMaxAttempts(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithNumberGenerator(gen NumberGenerator) BookingServiceOption {
	return func(s *BookingService) {
		s.numbers = gen
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithLogger(log logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithTracer(tracer trace.Tracer) BookingServiceOption {
	return func(s *BookingService) {
		s.tracer = tracer
	}
}

func NewBookingService(store repository.Store, producer Producer, eventsTopic string, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		store:       store,
		producer:    producer,
		eventsTopic: eventsTopic,
		maxAttempts: 3,
		numbers:     GenerateBookingNumber,
		now:         time.Now,
		log:         logrus.StandardLogger(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(service)
	}
	service.log = service.log.WithField("component", "booking-service")
	return service
}

// unavailableError aborts the booking transaction on the first full night.
type unavailableError struct {
	night time.Time
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("no units left on %s", e.night.Format(domain.DateLayout))
}

// CreateBooking runs the whole reservation as one serializable transaction:
// every night of the stay is re-checked inside it, so two requests racing for
// the last unit cannot both commit. A lost race is reported as
// OutcomeConflict and may be retried by the caller.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.CreateBooking")
	defer span.End()
	span.SetAttributes(attribute.Int64("room.id", input.RoomID))

	input.normalize()
	if err := input.validate(s.now()); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return CreateResult{}, err
	}

	room, err := s.store.GetRoom(ctx, input.RoomID)
	if errors.Is(err, domain.ErrRoomNotFound) || (err == nil && !room.Active) {
		return CreateResult{Outcome: OutcomeRoomNotFound}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get room")
		return CreateResult{}, fmt.Errorf("get room %d: %w", input.RoomID, err)
	}
	if input.Guests > room.Capacity {
		return CreateResult{}, domain.Invalid("guests", fmt.Sprintf("room accommodates at most %d guests", room.Capacity))
	}

	var created *domain.Booking
	err = s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		room, err := q.GetRoom(ctx, input.RoomID)
		if err != nil {
			return err
		}
		if !room.Active {
			return domain.ErrRoomNotFound
		}

		snapshot, err := availability.Load(ctx, q, *room, input.CheckIn, input.CheckOut)
		if err != nil {
			return err
		}
		if night, full := snapshot.FirstUnavailable(0); full {
			return &unavailableError{night: night}
		}

		now := s.now().UTC()
		nights := domain.NightCount(input.CheckIn, input.CheckOut)
		b := &domain.Booking{
			BookingNumber:      s.numbers(now),
			RoomID:             room.ID,
			CheckIn:            input.CheckIn,
			CheckOut:           input.CheckOut,
			GuestName:          input.GuestName,
			GuestEmail:         input.GuestEmail,
			GuestPhone:         input.GuestPhone,
			Guests:             input.Guests,
			SpecialRequests:    input.SpecialRequests,
			PricePerNightCents: room.PricePerNightCents,
			TotalPriceCents:    TotalPrice(room.PricePerNightCents, nights),
			Status:             domain.BookingStatusPending,
			StatusHistory:      []domain.StatusChange{{To: domain.BookingStatusPending, At: now}},
		}

		if input.GroupID == "" {
			b.GroupID = b.BookingNumber
		} else {
			if err := s.checkGroup(ctx, q, input.GroupID, input.GuestEmail); err != nil {
				return err
			}
			b.GroupID = input.GroupID
		}

		if err := q.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		created = b
		return nil
	})

	var unavailable *unavailableError
	switch {
	case err == nil:
	case errors.As(err, &unavailable):
		span.SetAttributes(attribute.String("unavailable.night", unavailable.night.Format(domain.DateLayout)))
		return CreateResult{Outcome: OutcomeUnavailable, UnavailableNight: unavailable.night}, nil
	case errors.Is(err, repository.ErrSerialization):
		s.log.WithFields(logrus.Fields{"room_id": input.RoomID}).Debug("booking transaction lost serialization conflict")
		return CreateResult{Outcome: OutcomeConflict}, nil
	case errors.Is(err, domain.ErrRoomNotFound):
		return CreateResult{Outcome: OutcomeRoomNotFound}, nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "create booking")
		return CreateResult{}, err
	}

	span.SetAttributes(attribute.String("booking.number", created.BookingNumber))
	s.log.WithFields(logrus.Fields{
		"booking_number": created.BookingNumber,
		"room_id":        created.RoomID,
		"check_in":       created.CheckIn.Format(domain.DateLayout),
		"check_out":      created.CheckOut.Format(domain.DateLayout),
	}).Info("booking created")
	s.publish(ctx, "booking_created", created)

	return CreateResult{Outcome: OutcomeCreated, Booking: created}, nil
}

// checkGroup only lets a guest join a reservation group they already own.
func (s *BookingService) checkGroup(ctx context.Context, q repository.Queries, groupID, email string) error {
	members, err := q.ListBookingsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group %s: %w", groupID, err)
	}
	if len(members) == 0 || !emailMatches(members[0].GuestEmail, email) {
		return domain.Invalid("group_id", "unknown reservation group")
	}
	return nil
}

// findGuestBooking resolves a booking for guest self-service. Unknown numbers
// and email mismatches produce the same error.
func findGuestBooking(ctx context.Context, q repository.BookingQueries, bookingNumber, email string) (*domain.Booking, error) {
	bookingNumber = strings.ToUpper(strings.TrimSpace(bookingNumber))
	if bookingNumber == "" || strings.TrimSpace(email) == "" {
		return nil, domain.ErrNotFoundOrUnauthorized
	}
	b, err := q.GetBookingByNumber(ctx, bookingNumber)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, domain.ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !emailMatches(b.GuestEmail, email) {
		return nil, domain.ErrNotFoundOrUnauthorized
	}
	return b, nil
}

// LookupBooking returns the booking and, when it belongs to a reservation
// group, every other booking of that group.
func (s *BookingService) LookupBooking(ctx context.Context, bookingNumber, email string) ([]domain.Booking, error) {
	b, err := findGuestBooking(ctx, s.store, bookingNumber, email)
	if err != nil {
		return nil, err
	}
	if b.GroupID == "" {
		return []domain.Booking{*b}, nil
	}
	members, err := s.store.ListBookingsByGroup(ctx, b.GroupID)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", b.GroupID, err)
	}
	if len(members) == 0 {
		return []domain.Booking{*b}, nil
	}
	return members, nil
}

// CancelGuestBooking cancels the booking together with the rest of its
// reservation group. Siblings already COMPLETED or NO_SHOW are left as they are.
func (s *BookingService) CancelGuestBooking(ctx context.Context, bookingNumber, email string) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.CancelGuestBooking")
	defer span.End()

	var (
		target  *domain.Booking
		changed []domain.Booking
	)
	err := s.retryOnConflict(ctx, func(ctx context.Context, q repository.Queries) error {
		target, changed = nil, nil

		b, err := findGuestBooking(ctx, q, bookingNumber, email)
		if err != nil {
			return err
		}
		if !domain.CanTransition(b.Status, domain.BookingStatusCancelled) {
			return fmt.Errorf("%w: booking is %s", domain.ErrInvalidStatusTransition, b.Status)
		}

		members := []domain.Booking{*b}
		if b.GroupID != "" {
			if members, err = q.ListBookingsByGroup(ctx, b.GroupID); err != nil {
				return err
			}
		}

		now := s.now()
		for i := range members {
			m := &members[i]
			if m.Status == domain.BookingStatusCancelled {
				continue
			}
			// Finished siblings keep their status.
			if m.ID != b.ID && !domain.CanTransition(m.Status, domain.BookingStatusCancelled) {
				continue
			}
			if err := m.Transition(domain.BookingStatusCancelled, now); err != nil {
				return err
			}
			if err := q.UpdateBooking(ctx, m); err != nil {
				return err
			}
			changed = append(changed, *m)
			if m.ID == b.ID {
				target = m
			}
		}
		if target == nil {
			if err := b.Transition(domain.BookingStatusCancelled, now); err != nil {
				return err
			}
			if err := q.UpdateBooking(ctx, b); err != nil {
				return err
			}
			target = b
			changed = append(changed, *b)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFoundOrUnauthorized) && !errors.Is(err, domain.ErrInvalidStatusTransition) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancel booking")
		}
		return nil, err
	}

	for i := range changed {
		s.publish(ctx, "booking_cancelled", &changed[i])
	}
	s.log.WithFields(logrus.Fields{"booking_number": target.BookingNumber, "cancelled": len(changed)}).Info("booking cancelled by guest")
	return target, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}
	return s.store.ListBookings(ctx, filter)
}

// UpdateBooking applies an admin status transition and/or notes change.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, input UpdateBookingInput) (*domain.Booking, error) {
	if input.Status == nil && input.AdminNotes == nil {
		return nil, domain.Invalid("body", "nothing to update")
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}

	var (
		updated       *domain.Booking
		statusChanged bool
	)
	err := s.retryOnConflict(ctx, func(ctx context.Context, q repository.Queries) error {
		b, err := q.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		statusChanged = false
		if input.Status != nil && *input.Status != b.Status {
			if err := b.Transition(*input.Status, s.now()); err != nil {
				return err
			}
			statusChanged = true
		}
		if input.AdminNotes != nil {
			b.AdminNotes = *input.AdminNotes
		}
		if err := q.UpdateBooking(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.log.WithFields(logrus.Fields{"booking_number": updated.BookingNumber, "status": updated.Status}).Info("booking status changed")
		s.publish(ctx, "booking_"+strings.ToLower(string(updated.Status)), updated)
	}
	return updated, nil
}

// ReconcileGroups moves every member of a diverged reservation group to the
// group's most advanced status. A cancelled member is only revived when its
// room still has a unit free on every night. It returns the number of
// bookings changed.
func (s *BookingService) ReconcileGroups(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.ReconcileGroups")
	defer span.End()

	groups, err := s.store.ListDivergentGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("list divergent groups: %w", err)
	}

	total := 0
	for _, groupID := range groups {
		var changed []domain.Booking
		err := s.retryOnConflict(ctx, func(ctx context.Context, q repository.Queries) error {
			changed = nil
			members, err := q.ListBookingsByGroup(ctx, groupID)
			if err != nil {
				return err
			}
			statuses := make([]domain.BookingStatus, 0, len(members))
			for _, m := range members {
				statuses = append(statuses, m.Status)
			}
			target := domain.ResolveGroupStatus(statuses)

			now := s.now()
			for i := range members {
				m := &members[i]
				if m.Status == target {
					continue
				}
				if !m.Status.Active() && target.Active() {
					night, full, err := s.revivalBlocked(ctx, q, m)
					if err != nil {
						return err
					}
					if full {
						s.log.WithFields(logrus.Fields{
							"group_id":       groupID,
							"booking_number": m.BookingNumber,
							"night":          night.Format(domain.DateLayout),
						}).Warn("reconcile skipped booking, room is full")
						continue
					}
				}
				m.ForceStatus(target, now)
				if err := q.UpdateBooking(ctx, m); err != nil {
					return err
				}
				changed = append(changed, *m)
			}
			return nil
		})
		if err != nil {
			s.log.WithError(err).WithField("group_id", groupID).Error("reconcile reservation group")
			continue
		}
		for i := range changed {
			s.publish(ctx, "booking_reconciled", &changed[i])
		}
		total += len(changed)
	}

	span.SetAttributes(attribute.Int("groups", len(groups)), attribute.Int("changed", total))
	if total > 0 {
		s.log.WithFields(logrus.Fields{"groups": len(groups), "changed": total}).Info("reservation groups reconciled")
	}
	return total, nil
}

// revivalBlocked reports the first night on which b could not be made
// active again without exceeding the room's units.
func (s *BookingService) revivalBlocked(ctx context.Context, q repository.Queries, b *domain.Booking) (time.Time, bool, error) {
	room, err := q.GetRoom(ctx, b.RoomID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get room %d: %w", b.RoomID, err)
	}
	snapshot, err := availability.Load(ctx, q, *room, b.CheckIn, b.CheckOut)
	if err != nil {
		return time.Time{}, false, err
	}
	night, full := snapshot.FirstUnavailable(b.ID)
	return night, full, nil
}

// CleanupCancelled removes cancelled bookings whose cancellation is older
// than olderThan.
func (s *BookingService) CleanupCancelled(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	n, err := s.store.DeleteCancelledBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("delete cancelled bookings: %w", err)
	}
	return n, nil
}

func (s *BookingService) retryOnConflict(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	var err error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err = s.store.InTx(ctx, fn)
		if !errors.Is(err, repository.ErrSerialization) {
			return err
		}
	}
	return err
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		BookingNumber: b.BookingNumber,
		GroupID:       b.GroupID,
		RoomID:        b.RoomID,
		CheckIn:       b.CheckIn.Format(domain.DateLayout),
		CheckOut:      b.CheckOut.Format(domain.DateLayout),
		GuestName:     b.GuestName,
		Email:         b.GuestEmail,
		Status:        string(b.Status),
		TotalCents:    b.TotalPriceCents,
		OccurredAt:    s.now().UTC(),
	}
	log := s.log.WithFields(logrus.Fields{"event": eventType, "booking_number": b.BookingNumber})
	if err := s.producer.Publish(ctx, s.eventsTopic, b.BookingNumber, event); err != nil {
		log.WithError(err).Warn("failed to publish booking event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, b.BookingNumber, event); err != nil {
			log.WithError(err).Warn("failed to publish notification event")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
