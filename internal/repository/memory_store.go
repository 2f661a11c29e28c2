package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

type calendarKey struct {
	roomID int64
	night  string
}

type memData struct {
	rooms         map[int64]domain.Room
	overrides     map[calendarKey]domain.AvailabilityOverride
	blocks        map[calendarKey]domain.BlockedDate
	bookings      map[int64]domain.Booking
	nextRoomID    int64
	nextBookingID int64
}

func (d *memData) clone() *memData {
	c := &memData{
		rooms:         make(map[int64]domain.Room, len(d.rooms)),
		overrides:     make(map[calendarKey]domain.AvailabilityOverride, len(d.overrides)),
		blocks:        make(map[calendarKey]domain.BlockedDate, len(d.blocks)),
		bookings:      make(map[int64]domain.Booking, len(d.bookings)),
		nextRoomID:    d.nextRoomID,
		nextBookingID: d.nextBookingID,
	}
	for k, v := range d.rooms {
		c.rooms[k] = v
	}
	for k, v := range d.overrides {
		c.overrides[k] = v
	}
	for k, v := range d.blocks {
		c.blocks[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	return c
}

// MemoryStore keeps everything in process. Transactions run one at a time
// against a private copy that replaces the live data on commit.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			rooms:     make(map[int64]domain.Room),
			overrides: make(map[calendarKey]domain.AvailabilityOverride),
			blocks:    make(map[calendarKey]domain.BlockedDate),
			bookings:  make(map[int64]domain.Booking),
		},
		now: time.Now,
	}
}

func (s *MemoryStore) queries() *memQueries {
	return &memQueries{data: s.data, now: s.now}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.data.clone()
	if err := fn(ctx, &memQueries{data: staged, now: s.now}); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().GetRoom(ctx, id)
}

func (s *MemoryStore) ListRooms(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListRooms(ctx, activeOnly)
}

func (s *MemoryStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateRoom(ctx, room)
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpdateRoom(ctx, room)
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().DeleteRoom(ctx, id)
}

func (s *MemoryStore) ListOverrides(ctx context.Context, roomID int64, from, to time.Time) ([]domain.AvailabilityOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListOverrides(ctx, roomID, from, to)
}

func (s *MemoryStore) UpsertOverride(ctx context.Context, o *domain.AvailabilityOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpsertOverride(ctx, o)
}

func (s *MemoryStore) DeleteOverride(ctx context.Context, roomID int64, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().DeleteOverride(ctx, roomID, date)
}

func (s *MemoryStore) ListBlockedDates(ctx context.Context, roomID int64, from, to time.Time) ([]domain.BlockedDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListBlockedDates(ctx, roomID, from, to)
}

func (s *MemoryStore) UpsertBlockedDate(ctx context.Context, b *domain.BlockedDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpsertBlockedDate(ctx, b)
}

func (s *MemoryStore) DeleteBlockedDate(ctx context.Context, roomID int64, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().DeleteBlockedDate(ctx, roomID, date)
}

func (s *MemoryStore) ListActiveBookings(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListActiveBookings(ctx, roomID, from, to)
}

func (s *MemoryStore) InsertBooking(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().InsertBooking(ctx, b)
}

func (s *MemoryStore) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().GetBooking(ctx, id)
}

func (s *MemoryStore) GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().GetBookingByNumber(ctx, number)
}

func (s *MemoryStore) ListBookingsByGroup(ctx context.Context, groupID string) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListBookingsByGroup(ctx, groupID)
}

func (s *MemoryStore) ListBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListBookings(ctx, filter)
}

func (s *MemoryStore) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpdateBooking(ctx, b)
}

func (s *MemoryStore) ListDivergentGroups(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().ListDivergentGroups(ctx)
}

func (s *MemoryStore) DeleteCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().DeleteCancelledBefore(ctx, cutoff)
}

type memQueries struct {
	data *memData
	now  func() time.Time
}

func (q *memQueries) GetRoom(_ context.Context, id int64) (*domain.Room, error) {
	r, ok := q.data.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &r, nil
}

func (q *memQueries) ListRooms(_ context.Context, activeOnly bool) ([]domain.Room, error) {
	rooms := make([]domain.Room, 0, len(q.data.rooms))
	for _, r := range q.data.rooms {
		if activeOnly && !r.Active {
			continue
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].PricePerNightCents != rooms[j].PricePerNightCents {
			return rooms[i].PricePerNightCents < rooms[j].PricePerNightCents
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (q *memQueries) CreateRoom(_ context.Context, room *domain.Room) error {
	q.data.nextRoomID++
	now := q.now().UTC()
	room.ID = q.data.nextRoomID
	room.CreatedAt, room.UpdatedAt = now, now
	q.data.rooms[room.ID] = *room
	return nil
}

func (q *memQueries) UpdateRoom(_ context.Context, room *domain.Room) error {
	existing, ok := q.data.rooms[room.ID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.CreatedAt = existing.CreatedAt
	room.UpdatedAt = q.now().UTC()
	q.data.rooms[room.ID] = *room
	return nil
}

func (q *memQueries) DeleteRoom(_ context.Context, id int64) error {
	if _, ok := q.data.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	for _, b := range q.data.bookings {
		if b.RoomID == id {
			return fmt.Errorf("%w: room %d is referenced by booking %s", domain.ErrConstraintViolation, id, b.BookingNumber)
		}
	}
	delete(q.data.rooms, id)
	for k := range q.data.overrides {
		if k.roomID == id {
			delete(q.data.overrides, k)
		}
	}
	for k := range q.data.blocks {
		if k.roomID == id {
			delete(q.data.blocks, k)
		}
	}
	return nil
}

func inRange(night, from, to time.Time) bool {
	n := domain.Night(night)
	return !n.Before(domain.Night(from)) && n.Before(domain.Night(to))
}

func (q *memQueries) ListOverrides(_ context.Context, roomID int64, from, to time.Time) ([]domain.AvailabilityOverride, error) {
	var out []domain.AvailabilityOverride
	for k, o := range q.data.overrides {
		if k.roomID == roomID && inRange(o.Date, from, to) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (q *memQueries) UpsertOverride(_ context.Context, o *domain.AvailabilityOverride) error {
	if _, ok := q.data.rooms[o.RoomID]; !ok {
		return fmt.Errorf("%w: room %d does not exist", domain.ErrConstraintViolation, o.RoomID)
	}
	o.Date = domain.Night(o.Date)
	o.UpdatedAt = q.now().UTC()
	q.data.overrides[calendarKey{o.RoomID, domain.NightKey(o.Date)}] = *o
	return nil
}

func (q *memQueries) DeleteOverride(_ context.Context, roomID int64, date time.Time) error {
	delete(q.data.overrides, calendarKey{roomID, domain.NightKey(date)})
	return nil
}

func (q *memQueries) ListBlockedDates(_ context.Context, roomID int64, from, to time.Time) ([]domain.BlockedDate, error) {
	var out []domain.BlockedDate
	for k, b := range q.data.blocks {
		if k.roomID == roomID && inRange(b.Date, from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (q *memQueries) UpsertBlockedDate(_ context.Context, b *domain.BlockedDate) error {
	if _, ok := q.data.rooms[b.RoomID]; !ok {
		return fmt.Errorf("%w: room %d does not exist", domain.ErrConstraintViolation, b.RoomID)
	}
	b.Date = domain.Night(b.Date)
	b.UpdatedAt = q.now().UTC()
	q.data.blocks[calendarKey{b.RoomID, domain.NightKey(b.Date)}] = *b
	return nil
}

func (q *memQueries) DeleteBlockedDate(_ context.Context, roomID int64, date time.Time) error {
	delete(q.data.blocks, calendarKey{roomID, domain.NightKey(date)})
	return nil
}

func (q *memQueries) ListActiveBookings(_ context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range q.data.bookings {
		if b.RoomID == roomID && b.Status.Active() && b.Overlaps(from, to) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) InsertBooking(_ context.Context, b *domain.Booking) error {
	if _, ok := q.data.rooms[b.RoomID]; !ok {
		return fmt.Errorf("%w: room %d does not exist", domain.ErrConstraintViolation, b.RoomID)
	}
	for _, existing := range q.data.bookings {
		if existing.BookingNumber == b.BookingNumber {
			return fmt.Errorf("%w: duplicate booking number %s", domain.ErrConstraintViolation, b.BookingNumber)
		}
	}
	q.data.nextBookingID++
	now := q.now().UTC()
	b.ID = q.data.nextBookingID
	b.CreatedAt, b.UpdatedAt = now, now
	q.data.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (q *memQueries) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := q.data.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	c := copyBooking(b)
	return &c, nil
}

func (q *memQueries) GetBookingByNumber(_ context.Context, number string) (*domain.Booking, error) {
	for _, b := range q.data.bookings {
		if b.BookingNumber == number {
			c := copyBooking(b)
			return &c, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (q *memQueries) ListBookingsByGroup(_ context.Context, groupID string) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	for _, b := range q.data.bookings {
		if b.GroupID == groupID {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) ListBookings(_ context.Context, filter BookingFilter) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	for _, b := range q.data.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.RoomID != 0 && b.RoomID != filter.RoomID {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (q *memQueries) UpdateBooking(_ context.Context, b *domain.Booking) error {
	existing, ok := q.data.bookings[b.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	existing.Status = b.Status
	existing.StatusHistory = b.StatusHistory
	existing.AdminNotes = b.AdminNotes
	existing.ConfirmedAt = b.ConfirmedAt
	existing.CancelledAt = b.CancelledAt
	existing.UpdatedAt = q.now().UTC()
	b.UpdatedAt = existing.UpdatedAt
	q.data.bookings[b.ID] = copyBooking(existing)
	return nil
}

func (q *memQueries) ListDivergentGroups(_ context.Context) ([]string, error) {
	seen := make(map[string]domain.BookingStatus)
	divergent := make(map[string]bool)
	for _, b := range q.data.bookings {
		if b.GroupID == "" {
			continue
		}
		if s, ok := seen[b.GroupID]; ok && s != b.Status {
			divergent[b.GroupID] = true
		}
		seen[b.GroupID] = b.Status
	}
	groups := make([]string, 0, len(divergent))
	for g := range divergent {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func (q *memQueries) DeleteCancelledBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, b := range q.data.bookings {
		if b.Status == domain.BookingStatusCancelled && b.CancelledAt != nil && b.CancelledAt.Before(cutoff) {
			delete(q.data.bookings, id)
			n++
		}
	}
	return n, nil
}

func copyBooking(b domain.Booking) domain.Booking {
	if b.StatusHistory != nil {
		h := make([]domain.StatusChange, len(b.StatusHistory))
		copy(h, b.StatusHistory)
		b.StatusHistory = h
	}
	return b
}

var _ Store = (*MemoryStore)(nil)
