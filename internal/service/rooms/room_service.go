package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/availability"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/validation"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Domenick1991/hotelbooking/internal/service/rooms"

type RoomUseCase interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	SearchAvailable(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]domain.Room, error)
	SearchWithQuantity(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]RoomQuantity, error)
	Calendar(ctx context.Context, roomID int64, from, to time.Time) ([]availability.NightAvailability, error)

	CreateRoom(ctx context.Context, input RoomInput) (*domain.Room, error)
	UpdateRoom(ctx context.Context, id int64, input RoomInput) (*domain.Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	SetOverride(ctx context.Context, roomID int64, date time.Time, units int) (*domain.AvailabilityOverride, error)
	DeleteOverride(ctx context.Context, roomID int64, date time.Time) error
	SetBlockedDate(ctx context.Context, roomID int64, date time.Time, units int, reason string) (*domain.BlockedDate, error)
	DeleteBlockedDate(ctx context.Context, roomID int64, date time.Time) error
}

// RoomCache keeps the active room list close to the search endpoints.
// A nil slice from GetActiveRooms is a miss.
type RoomCache interface {
	GetActiveRooms(ctx context.Context) ([]domain.Room, error)
	SetActiveRooms(ctx context.Context, rooms []domain.Room) error
	InvalidateRooms(ctx context.Context) error
}

type RoomQuantity struct {
	Room     domain.Room
	Quantity int
}

type RoomInput struct {
	Name               string `json:"name" validate:"required,max=200"`
	Description        string `json:"description" validate:"max=4000"`
	TotalUnits         int    `json:"total_units" validate:"gte=1"`
	Capacity           int    `json:"capacity" validate:"gte=1"`
	PricePerNightCents int64  `json:"price_per_night_cents" validate:"gte=0"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

type RoomService struct {
	store  repository.Queries
	engine *availability.Engine
	cache  RoomCache
	log    logrus.FieldLogger
	tracer trace.Tracer
}

type RoomServiceOption func(*RoomService)

func WithCache(cache RoomCache) RoomServiceOption {
	return func(s *RoomService) {
		s.cache = cache
	}
}

func WithLogger(log logrus.FieldLogger) RoomServiceOption {
	return func(s *RoomService) {
		s.log = log
	}
}

func NewRoomService(store repository.Queries, opts ...RoomServiceOption) *RoomService {
	s := &RoomService{
		store:  store,
		engine: availability.NewEngine(store),
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "room-service")
	return s
}

// ListRooms returns active rooms, served from the cache when it is warm.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if s.cache != nil {
		cached, err := s.cache.GetActiveRooms(ctx)
		if err != nil {
			s.log.WithError(err).Warn("read rooms cache")
		} else if cached != nil {
			return cached, nil
		}
	}

	rooms, err := s.store.ListRooms(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetActiveRooms(ctx, rooms); err != nil {
			s.log.WithError(err).Warn("write rooms cache")
		}
	}
	return rooms, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return s.store.GetRoom(ctx, id)
}

func (s *RoomService) candidates(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]domain.Room, error) {
	if err := availability.ValidateRange(checkIn, checkOut); err != nil {
		return nil, err
	}
	if guests < 0 {
		return nil, domain.Invalid("guests", "must not be negative")
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := rooms[:0:0]
	for _, r := range rooms {
		if r.Active && r.Capacity >= guests {
			out = append(out, r)
		}
	}
	return out, nil
}

// SearchAvailable lists active rooms that fit guests and have at least one
// unit free on every night of [checkIn, checkOut).
func (s *RoomService) SearchAvailable(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]domain.Room, error) {
	ctx, span := s.tracer.Start(ctx, "RoomService.SearchAvailable")
	defer span.End()

	rooms, err := s.candidates(ctx, checkIn, checkOut, guests)
	if err != nil {
		return nil, err
	}
	available := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		snapshot, err := availability.Load(ctx, s.store, r, checkIn, checkOut)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", r.ID, err)
		}
		if snapshot.RangeAvailable(0) {
			available = append(available, r)
		}
	}
	span.SetAttributes(attribute.Int("rooms.checked", len(rooms)), attribute.Int("rooms.available", len(available)))
	return available, nil
}

// SearchWithQuantity is SearchAvailable plus how many units could be booked
// for the whole stay. Rooms with nothing left are omitted.
func (s *RoomService) SearchWithQuantity(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]RoomQuantity, error) {
	ctx, span := s.tracer.Start(ctx, "RoomService.SearchWithQuantity")
	defer span.End()

	rooms, err := s.candidates(ctx, checkIn, checkOut, guests)
	if err != nil {
		return nil, err
	}
	out := make([]RoomQuantity, 0, len(rooms))
	for _, r := range rooms {
		snapshot, err := availability.Load(ctx, s.store, r, checkIn, checkOut)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", r.ID, err)
		}
		if q := snapshot.MaxQuantity(); q > 0 {
			out = append(out, RoomQuantity{Room: r, Quantity: q})
		}
	}
	return out, nil
}

func (s *RoomService) Calendar(ctx context.Context, roomID int64, from, to time.Time) ([]availability.NightAvailability, error) {
	return s.engine.Calendar(ctx, roomID, from, to)
}

func (in *RoomInput) toRoom() (*domain.Room, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return &domain.Room{
		Name:               in.Name,
		Description:        in.Description,
		TotalUnits:         in.TotalUnits,
		Capacity:           in.Capacity,
		PricePerNightCents: in.PricePerNightCents,
		Active:             in.Active == nil || *in.Active,
	}, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (*domain.Room, error) {
	room, err := input.toRoom()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"room_id": room.ID, "name": room.Name}).Info("room created")
	return room, nil
}

// UpdateRoom replaces the room's attributes. Existing bookings keep the
// price they were made at.
func (s *RoomService) UpdateRoom(ctx context.Context, id int64, input RoomInput) (*domain.Room, error) {
	room, err := input.toRoom()
	if err != nil {
		return nil, err
	}
	room.ID = id
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return room, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, id int64) error {
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.WithField("room_id", id).Info("room deleted")
	return nil
}

func (s *RoomService) checkCalendarInput(ctx context.Context, roomID int64, date time.Time, units int) error {
	if date.IsZero() {
		return domain.Invalid("date", "is required")
	}
	if units < 0 {
		return domain.Invalid("units", "must not be negative")
	}
	_, err := s.store.GetRoom(ctx, roomID)
	return err
}

func (s *RoomService) SetOverride(ctx context.Context, roomID int64, date time.Time, units int) (*domain.AvailabilityOverride, error) {
	if err := s.checkCalendarInput(ctx, roomID, date, units); err != nil {
		return nil, err
	}
	o := &domain.AvailabilityOverride{RoomID: roomID, Date: domain.Night(date), AvailableUnits: units}
	if err := s.store.UpsertOverride(ctx, o); err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}
	return o, nil
}

func (s *RoomService) DeleteOverride(ctx context.Context, roomID int64, date time.Time) error {
	return s.store.DeleteOverride(ctx, roomID, domain.Night(date))
}

func (s *RoomService) SetBlockedDate(ctx context.Context, roomID int64, date time.Time, units int, reason string) (*domain.BlockedDate, error) {
	if err := s.checkCalendarInput(ctx, roomID, date, units); err != nil {
		return nil, err
	}
	b := &domain.BlockedDate{RoomID: roomID, Date: domain.Night(date), UnitsBlocked: units, Reason: strings.TrimSpace(reason)}
	if err := s.store.UpsertBlockedDate(ctx, b); err != nil {
		return nil, fmt.Errorf("upsert blocked date: %w", err)
	}
	return b, nil
}

func (s *RoomService) DeleteBlockedDate(ctx context.Context, roomID int64, date time.Time) error {
	return s.store.DeleteBlockedDate(ctx, roomID, domain.Night(date))
}

func (s *RoomService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRooms(ctx); err != nil {
		s.log.WithError(err).Warn("invalidate rooms cache")
	}
}

var _ RoomUseCase = (*RoomService)(nil)
