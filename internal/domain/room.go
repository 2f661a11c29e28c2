package domain

import "time"

type Room struct {
	ID                 int64
	Name               string
	Description        string
	TotalUnits         int
	Capacity           int
	PricePerNightCents int64
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilityOverride replaces the room's TotalUnits for a single night.
type AvailabilityOverride struct {
	RoomID         int64
	Date           time.Time
	AvailableUnits int
	UpdatedAt      time.Time
}

// BlockedDate withholds units for a single night regardless of bookings.
type BlockedDate struct {
	RoomID       int64
	Date         time.Time
	UnitsBlocked int
	Reason       string
	UpdatedAt    time.Time
}
