package availability

import (
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
)

// Snapshot holds everything needed to evaluate a room's capacity over
// [From, To): the room itself plus the overrides, blocks and active bookings
// that touch the range. It is built with a handful of range queries and then
// folded night by night.
type Snapshot struct {
	Room      domain.Room
	From      time.Time
	To        time.Time
	overrides map[string]int
	blocks    map[string]int
	bookings  []domain.Booking
}

// NightAvailability is the per-night breakdown shown on the admin calendar.
type NightAvailability struct {
	Date      time.Time `json:"date"`
	Capacity  int       `json:"capacity"`
	Booked    int       `json:"booked"`
	Blocked   int       `json:"blocked"`
	Available int       `json:"available"`
	Override  bool      `json:"override"`
}

func NewSnapshot(
	room domain.Room,
	from, to time.Time,
	overrides []domain.AvailabilityOverride,
	blocks []domain.BlockedDate,
	bookings []domain.Booking,
) *Snapshot {
	s := &Snapshot{
		Room:      room,
		From:      domain.Night(from),
		To:        domain.Night(to),
		overrides: make(map[string]int, len(overrides)),
		blocks:    make(map[string]int, len(blocks)),
	}
	for _, o := range overrides {
		if o.RoomID == room.ID {
			s.overrides[domain.NightKey(o.Date)] = o.AvailableUnits
		}
	}
	for _, b := range blocks {
		if b.RoomID == room.ID {
			s.blocks[domain.NightKey(b.Date)] += b.UnitsBlocked
		}
	}
	for _, b := range bookings {
		if b.RoomID == room.ID && b.Status.Active() {
			s.bookings = append(s.bookings, b)
		}
	}
	return s
}

// Capacity is the override for the night if one exists, else the room's units.
func (s *Snapshot) Capacity(night time.Time) (int, bool) {
	if units, ok := s.overrides[domain.NightKey(night)]; ok {
		return units, true
	}
	return s.Room.TotalUnits, false
}

func (s *Snapshot) Blocked(night time.Time) int {
	return s.blocks[domain.NightKey(night)]
}

// Booked counts active bookings covering the night, skipping excludeID.
func (s *Snapshot) Booked(night time.Time, excludeID int64) int {
	n := 0
	for i := range s.bookings {
		if excludeID != 0 && s.bookings[i].ID == excludeID {
			continue
		}
		if s.bookings[i].Covers(night) {
			n++
		}
	}
	return n
}

// Nightly is the number of units still free on the night, floored at zero.
func (s *Snapshot) Nightly(night time.Time, excludeID int64) int {
	capacity, _ := s.Capacity(night)
	free := capacity - s.Booked(night, excludeID) - s.Blocked(night)
	if free < 0 {
		return 0
	}
	return free
}

// RangeAvailable reports whether every night of the snapshot has a free unit.
func (s *Snapshot) RangeAvailable(excludeID int64) bool {
	for _, night := range domain.Nights(s.From, s.To) {
		if s.Nightly(night, excludeID) <= 0 {
			return false
		}
	}
	return true
}

// FirstUnavailable returns the first night without a free unit.
func (s *Snapshot) FirstUnavailable(excludeID int64) (time.Time, bool) {
	for _, night := range domain.Nights(s.From, s.To) {
		if s.Nightly(night, excludeID) <= 0 {
			return night, true
		}
	}
	return time.Time{}, false
}

// MaxQuantity is the minimum nightly availability across the range.
func (s *Snapshot) MaxQuantity() int {
	nights := domain.Nights(s.From, s.To)
	if len(nights) == 0 {
		return 0
	}
	lowest := -1
	for _, night := range nights {
		free := s.Nightly(night, 0)
		if lowest < 0 || free < lowest {
			lowest = free
		}
	}
	return lowest
}

func (s *Snapshot) Calendar() []NightAvailability {
	nights := domain.Nights(s.From, s.To)
	out := make([]NightAvailability, 0, len(nights))
	for _, night := range nights {
		capacity, override := s.Capacity(night)
		out = append(out, NightAvailability{
			Date:      night,
			Capacity:  capacity,
			Booked:    s.Booked(night, 0),
			Blocked:   s.Blocked(night),
			Available: s.Nightly(night, 0),
			Override:  override,
		})
	}
	return out
}
