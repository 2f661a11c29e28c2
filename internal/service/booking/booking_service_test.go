package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/availability"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

// conflictStore loses every serializable transaction.
type conflictStore struct {
	*repository.MemoryStore
	attempts int32
}

func (s *conflictStore) InTx(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	atomic.AddInt32(&s.attempts, 1)
	return fmt.Errorf("commit tx: %w", repository.ErrSerialization)
}

var testNow = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := domain.ParseNight(s)
	if err != nil {
		panic(err)
	}
	return t
}

func sequentialNumbers() NumberGenerator {
	var n int64
	return func(time.Time) string {
		return fmt.Sprintf("BKTEST-%04d", atomic.AddInt64(&n, 1))
	}
}

func newTestService(t *testing.T, store repository.Store, opts ...BookingServiceOption) *BookingService {
	t.Helper()
	l, _ := test.NewNullLogger()
	base := []BookingServiceOption{
		WithClock(func() time.Time { return testNow }),
		WithLogger(l),
		WithNumberGenerator(sequentialNumbers()),
	}
	return NewBookingService(store, nil, "", append(base, opts...)...)
}

func seedRoom(t *testing.T, store *repository.MemoryStore, units int) *domain.Room {
	t.Helper()
	room := &domain.Room{Name: "Deluxe", TotalUnits: units, Capacity: 3, PricePerNightCents: 12000, Active: true}
	require.NoError(t, store.CreateRoom(context.Background(), room))
	return room
}

func validInput(roomID int64) CreateBookingInput {
	return CreateBookingInput{
		RoomID:     roomID,
		CheckIn:    day("2026-01-10"),
		CheckOut:   day("2026-01-12"),
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		GuestPhone: "+44 20 0000 0000",
		Guests:     2,
	}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 2)
	producer := &MockProducer{}
	l, _ := test.NewNullLogger()
	service := NewBookingService(store, producer, "booking_events",
		WithClock(func() time.Time { return testNow }),
		WithLogger(l),
		WithNumberGenerator(sequentialNumbers()),
		WithNotificationsTopic("notifications"),
	)
	ctx := context.Background()

	producer.On("Publish", mock.Anything, "booking_events", "BKTEST-0001", mock.AnythingOfType("kafka.BookingEvent")).Return(nil).Once()
	producer.On("Publish", mock.Anything, "notifications", "BKTEST-0001", mock.AnythingOfType("kafka.BookingEvent")).Return(nil).Once()

	result, err := service.CreateBooking(ctx, validInput(room.ID))

	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)
	require.NoError(t, result.Err())
	b := result.Booking
	assert.NotZero(t, b.ID)
	assert.Equal(t, "BKTEST-0001", b.BookingNumber)
	assert.Equal(t, b.BookingNumber, b.GroupID)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, int64(12000), b.PricePerNightCents)
	assert.Equal(t, int64(24000), b.TotalPriceCents)
	require.Len(t, b.StatusHistory, 1)
	assert.Equal(t, domain.BookingStatusPending, b.StatusHistory[0].To)

	stored, err := store.GetBookingByNumber(ctx, "BKTEST-0001")
	require.NoError(t, err)
	assert.Equal(t, b.TotalPriceCents, stored.TotalPriceCents)

	event := producer.Calls[0].Arguments.Get(3).(kafka.BookingEvent)
	assert.Equal(t, "booking_created", event.Type)
	assert.Equal(t, "ada@example.com", event.Email)
	assert.Equal(t, "2026-01-10", event.CheckIn)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_PublishFailureDoesNotFail(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	producer := &MockProducer{}
	l, _ := test.NewNullLogger()
	service := NewBookingService(store, producer, "booking_events",
		WithClock(func() time.Time { return testNow }), WithLogger(l))

	producer.On("Publish", mock.Anything, "booking_events", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	result, err := service.CreateBooking(context.Background(), validInput(room.ID))

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Regexp(t, regexp.MustCompile(`^BK260101-[0-9A-Z]+$`), result.Booking.BookingNumber)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_ValidationErrors(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 2)
	service := newTestService(t, store)
	ctx := context.Background()

	testCases := []struct {
		name   string
		mutate func(in *CreateBookingInput)
		field  string
	}{
		{name: "check out equals check in", mutate: func(in *CreateBookingInput) { in.CheckOut = in.CheckIn }, field: "check_out"},
		{name: "check out before check in", mutate: func(in *CreateBookingInput) { in.CheckOut = day("2026-01-05") }, field: "check_out"},
		{name: "check in in the past", mutate: func(in *CreateBookingInput) {
			in.CheckIn, in.CheckOut = day("2025-12-30"), day("2026-01-02")
		}, field: "check_in"},
		{name: "malformed email", mutate: func(in *CreateBookingInput) { in.GuestEmail = "not-an-email" }, field: "guest_email"},
		{name: "missing name", mutate: func(in *CreateBookingInput) { in.GuestName = "   " }, field: "guest_name"},
		{name: "zero guests", mutate: func(in *CreateBookingInput) { in.Guests = 0 }, field: "guests"},
		{name: "too many guests", mutate: func(in *CreateBookingInput) { in.Guests = 4 }, field: "guests"},
		{name: "stay longer than a year", mutate: func(in *CreateBookingInput) { in.CheckOut = day("2027-02-01") }, field: "check_out"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(room.ID)
			tc.mutate(&input)

			result, err := service.CreateBooking(ctx, input)

			require.Error(t, err)
			assert.Nil(t, result.Booking)
			v := domain.AsValidationError(err)
			require.NotNil(t, v, err.Error())
			assert.Contains(t, v.Fields(), tc.field)
		})
	}

	bookings, err := store.ListBookings(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestBookingService_CreateBooking_RoomNotFound(t *testing.T) {
	store := repository.NewMemoryStore()
	inactive := &domain.Room{Name: "Closed", TotalUnits: 1, Capacity: 2, PricePerNightCents: 100, Active: false}
	require.NoError(t, store.CreateRoom(context.Background(), inactive))
	service := newTestService(t, store)

	for _, id := range []int64{inactive.ID, 999} {
		result, err := service.CreateBooking(context.Background(), validInput(id))

		require.NoError(t, err)
		assert.Equal(t, OutcomeRoomNotFound, result.Outcome)
		assert.True(t, errors.Is(result.Err(), domain.ErrRoomNotFound))
	}
}

func TestBookingService_CreateBooking_Unavailable(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	first := validInput(room.ID)
	first.CheckIn, first.CheckOut = day("2026-01-11"), day("2026-01-13")
	result, err := service.CreateBooking(ctx, first)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)

	result, err = service.CreateBooking(ctx, validInput(room.ID))

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnavailable, result.Outcome)
	assert.Equal(t, day("2026-01-11"), result.UnavailableNight)
	assert.True(t, errors.Is(result.Err(), domain.ErrRoomNotAvailable))

	bookings, err := store.ListBookings(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestBookingService_CreateBooking_CheckoutDayIsFree(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)

	next := validInput(room.ID)
	next.CheckIn, next.CheckOut = day("2026-01-12"), day("2026-01-14")
	result, err = service.CreateBooking(ctx, next)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestBookingService_CreateBooking_RespectsOverridesAndBlocks(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 4)
	service := newTestService(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpsertOverride(ctx, &domain.AvailabilityOverride{RoomID: room.ID, Date: day("2026-01-11"), AvailableUnits: 2}))
	require.NoError(t, store.UpsertBlockedDate(ctx, &domain.BlockedDate{RoomID: room.ID, Date: day("2026-01-11"), UnitsBlocked: 1, Reason: "maintenance"}))

	outcomes := make([]Outcome, 0, 2)
	for i := 0; i < 2; i++ {
		result, err := service.CreateBooking(ctx, validInput(room.ID))
		require.NoError(t, err)
		outcomes = append(outcomes, result.Outcome)
	}

	assert.Equal(t, []Outcome{OutcomeCreated, OutcomeUnavailable}, outcomes)
}

func TestBookingService_CreateBooking_NoOverbookingUnderConcurrency(t *testing.T) {
	const units = 5
	const requests = units + 7

	store := repository.NewMemoryStore()
	room := seedRoom(t, store, units)
	service := newTestService(t, store)
	ctx := context.Background()

	var (
		wg          sync.WaitGroup
		created     int32
		unavailable int32
		start       = make(chan struct{})
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := validInput(room.ID)
			input.GuestEmail = fmt.Sprintf("guest%d@example.com", i)
			<-start

			result, err := service.CreateBooking(ctx, input)
			if !assert.NoError(t, err) {
				return
			}
			switch result.Outcome {
			case OutcomeCreated:
				atomic.AddInt32(&created, 1)
			case OutcomeUnavailable:
				atomic.AddInt32(&unavailable, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(units), created)
	assert.Equal(t, int32(requests-units), unavailable)

	engine := availability.NewEngine(store)
	for _, night := range domain.Nights(day("2026-01-10"), day("2026-01-12")) {
		free, err := engine.NightlyAvailability(ctx, room.ID, night)
		require.NoError(t, err)
		assert.Equal(t, 0, free)
	}
}

func TestBookingService_CreateBooking_Conflict(t *testing.T) {
	mem := repository.NewMemoryStore()
	room := seedRoom(t, mem, 1)
	store := &conflictStore{MemoryStore: mem}
	service := newTestService(t, store)

	result, err := service.CreateBooking(context.Background(), validInput(room.ID))

	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, result.Outcome)
	assert.Nil(t, result.Booking)
	assert.True(t, errors.Is(result.Err(), ErrConflict))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.attempts))
}

func TestBookingService_CreateBooking_NumberCollision(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 3)
	service := newTestService(t, store, WithNumberGenerator(func(time.Time) string { return "BKSAME" }))
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)

	result, err = service.CreateBooking(ctx, validInput(room.ID))

	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
	assert.Nil(t, result.Booking)
	bookings, err := store.ListBookings(ctx, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestBookingService_CreateBooking_PriceSnapshot(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 2)
	service := newTestService(t, store)
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)

	room.PricePerNightCents = 99000
	require.NoError(t, store.UpdateRoom(ctx, room))

	stored, err := store.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(24000), stored.TotalPriceCents)
	assert.Equal(t, int64(12000), stored.PricePerNightCents)
}

func TestBookingService_CreateBooking_JoinGroup(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 3)
	other := seedRoom(t, store, 3)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)

	second := validInput(other.ID)
	second.GroupID = first.Booking.GroupID
	second.GuestEmail = "ADA@example.com"
	result, err := service.CreateBooking(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first.Booking.GroupID, result.Booking.GroupID)

	stranger := validInput(other.ID)
	stranger.GroupID = first.Booking.GroupID
	stranger.GuestEmail = "mallory@example.com"
	_, err = service.CreateBooking(ctx, stranger)
	require.Error(t, err)
	assert.Contains(t, domain.AsValidationError(err).Fields(), "group_id")
}

func TestBookingService_LookupBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 3)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	second := validInput(room.ID)
	second.GroupID = first.Booking.GroupID
	_, err = service.CreateBooking(ctx, second)
	require.NoError(t, err)

	bookings, err := service.LookupBooking(ctx, " bktest-0001 ", "ADA@Example.com")
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	_, wrongEmail := service.LookupBooking(ctx, "BKTEST-0001", "eve@example.com")
	_, unknown := service.LookupBooking(ctx, "BKTEST-9999", "ada@example.com")

	assert.True(t, errors.Is(wrongEmail, domain.ErrNotFoundOrUnauthorized))
	assert.True(t, errors.Is(unknown, domain.ErrNotFoundOrUnauthorized))
	assert.Equal(t, wrongEmail.Error(), unknown.Error())
}

func TestBookingService_CancelGuestBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 3)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	second := validInput(room.ID)
	second.GroupID = first.Booking.GroupID
	secondResult, err := service.CreateBooking(ctx, second)
	require.NoError(t, err)

	cancelled, err := service.CancelGuestBooking(ctx, "BKTEST-0001", "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, domain.StatusChange{From: domain.BookingStatusPending, To: domain.BookingStatusCancelled, At: testNow}, cancelled.StatusHistory[1])

	sibling, err := store.GetBooking(ctx, secondResult.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, sibling.Status)

	engine := availability.NewEngine(store)
	free, err := engine.NightlyAvailability(ctx, room.ID, day("2026-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 3, free)
}

func TestBookingService_CancelGuestBooking_CompletedIsRejected(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	confirmed := domain.BookingStatusConfirmed
	completed := domain.BookingStatusCompleted
	_, err = service.UpdateBooking(ctx, result.Booking.ID, UpdateBookingInput{Status: &confirmed})
	require.NoError(t, err)
	_, err = service.UpdateBooking(ctx, result.Booking.ID, UpdateBookingInput{Status: &completed})
	require.NoError(t, err)

	_, err = service.CancelGuestBooking(ctx, "BKTEST-0001", "ada@example.com")

	assert.True(t, errors.Is(err, domain.ErrInvalidStatusTransition))
	stored, err := store.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, stored.Status)
	assert.Nil(t, stored.CancelledAt)
}

func TestBookingService_CancelGuestBooking_WrongEmail(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)

	_, err = service.CancelGuestBooking(ctx, "BKTEST-0001", "eve@example.com")

	assert.True(t, errors.Is(err, domain.ErrNotFoundOrUnauthorized))
	stored, err := store.GetBooking(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
}

func TestBookingService_UpdateBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	result, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	id := result.Booking.ID

	confirmed := domain.BookingStatusConfirmed
	notes := "late arrival"
	updated, err := service.UpdateBooking(ctx, id, UpdateBookingInput{Status: &confirmed, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, "late arrival", updated.AdminNotes)
	require.NotNil(t, updated.ConfirmedAt)
	assert.Len(t, updated.StatusHistory, 2)

	pending := domain.BookingStatusPending
	_, err = service.UpdateBooking(ctx, id, UpdateBookingInput{Status: &pending})
	assert.True(t, errors.Is(err, domain.ErrInvalidStatusTransition))

	bogus := domain.BookingStatus("LOST")
	_, err = service.UpdateBooking(ctx, id, UpdateBookingInput{Status: &bogus})
	assert.NotNil(t, domain.AsValidationError(err))

	_, err = service.UpdateBooking(ctx, id, UpdateBookingInput{})
	assert.NotNil(t, domain.AsValidationError(err))

	_, err = service.UpdateBooking(ctx, 999, UpdateBookingInput{AdminNotes: &notes})
	assert.True(t, errors.Is(err, domain.ErrBookingNotFound))

	stored, err := store.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestBookingService_ReconcileGroups(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 5)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	ids := []int64{first.Booking.ID}
	for i := 0; i < 2; i++ {
		in := validInput(room.ID)
		in.GroupID = first.Booking.GroupID
		r, err := service.CreateBooking(ctx, in)
		require.NoError(t, err)
		ids = append(ids, r.Booking.ID)
	}
	confirmed := domain.BookingStatusConfirmed
	_, err = service.UpdateBooking(ctx, ids[1], UpdateBookingInput{Status: &confirmed})
	require.NoError(t, err)

	changed, err := service.ReconcileGroups(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	for _, id := range ids {
		b, err := store.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	}

	changed, err = service.ReconcileGroups(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestBookingService_CleanupCancelled(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	_, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	_, err = service.CancelGuestBooking(ctx, "BKTEST-0001", "ada@example.com")
	require.NoError(t, err)

	n, err := service.CleanupCancelled(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	later := newTestService(t, store, WithClock(func() time.Time { return testNow.Add(48 * time.Hour) }))
	n, err = later.CleanupCancelled(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGenerateBookingNumber(t *testing.T) {
	now := time.Date(2026, 1, 10, 13, 45, 0, 0, time.UTC)

	a := GenerateBookingNumber(now)
	b := GenerateBookingNumber(now)

	assert.Regexp(t, regexp.MustCompile(`^BK260110-[0-9A-Z]{5,}$`), a)
	assert.Equal(t, a[:len(a)-4], b[:len(b)-4])
}

func TestTotalPrice(t *testing.T) {
	assert.Equal(t, int64(36000), TotalPrice(12000, 3))
	assert.Equal(t, int64(0), TotalPrice(12000, 0))
}

func TestBookingService_ReconcileGroups_DoesNotOverbook(t *testing.T) {
	store := repository.NewMemoryStore()
	roomX := seedRoom(t, store, 1)
	roomY := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(roomX.ID))
	require.NoError(t, err)
	sibling := validInput(roomY.ID)
	sibling.GroupID = first.Booking.GroupID
	_, err = service.CreateBooking(ctx, sibling)
	require.NoError(t, err)

	cancelled := domain.BookingStatusCancelled
	_, err = service.UpdateBooking(ctx, first.Booking.ID, UpdateBookingInput{Status: &cancelled})
	require.NoError(t, err)

	other := validInput(roomX.ID)
	other.GuestEmail = "grace@example.com"
	taken, err := service.CreateBooking(ctx, other)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, taken.Outcome)

	changed, err := service.ReconcileGroups(ctx)

	require.NoError(t, err)
	assert.Zero(t, changed)
	stored, err := store.GetBooking(ctx, first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)

	engine := availability.NewEngine(store)
	nights, err := engine.Calendar(ctx, roomX.ID, day("2026-01-10"), day("2026-01-12"))
	require.NoError(t, err)
	for _, n := range nights {
		assert.LessOrEqual(t, n.Booked, n.Capacity, n.Date.Format(domain.DateLayout))
	}
}

func TestBookingService_ReconcileGroups_RevivesWhenRoomIsFree(t *testing.T) {
	store := repository.NewMemoryStore()
	roomX := seedRoom(t, store, 1)
	roomY := seedRoom(t, store, 1)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(roomX.ID))
	require.NoError(t, err)
	sibling := validInput(roomY.ID)
	sibling.GroupID = first.Booking.GroupID
	_, err = service.CreateBooking(ctx, sibling)
	require.NoError(t, err)

	cancelled := domain.BookingStatusCancelled
	_, err = service.UpdateBooking(ctx, first.Booking.ID, UpdateBookingInput{Status: &cancelled})
	require.NoError(t, err)

	changed, err := service.ReconcileGroups(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	stored, err := store.GetBooking(ctx, first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
}

func TestBookingService_CancelGuestBooking_SkipsFinishedSiblings(t *testing.T) {
	store := repository.NewMemoryStore()
	room := seedRoom(t, store, 3)
	service := newTestService(t, store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, validInput(room.ID))
	require.NoError(t, err)
	sibling := validInput(room.ID)
	sibling.GroupID = first.Booking.GroupID
	second, err := service.CreateBooking(ctx, sibling)
	require.NoError(t, err)

	confirmed := domain.BookingStatusConfirmed
	completed := domain.BookingStatusCompleted
	_, err = service.UpdateBooking(ctx, first.Booking.ID, UpdateBookingInput{Status: &confirmed})
	require.NoError(t, err)
	_, err = service.UpdateBooking(ctx, first.Booking.ID, UpdateBookingInput{Status: &completed})
	require.NoError(t, err)

	result, err := service.CancelGuestBooking(ctx, second.Booking.BookingNumber, "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	finished, err := store.GetBooking(ctx, first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, finished.Status)
}
