package booking

import (
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/availability"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/validation"
)

func (in *CreateBookingInput) normalize() {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = strings.TrimSpace(in.GuestEmail)
	in.GuestPhone = strings.TrimSpace(in.GuestPhone)
	in.GroupID = strings.TrimSpace(in.GroupID)
	in.CheckIn = domain.Night(in.CheckIn)
	in.CheckOut = domain.Night(in.CheckOut)
}

func (in *CreateBookingInput) validate(now time.Time) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if err := availability.ValidateRange(in.CheckIn, in.CheckOut); err != nil {
		return err
	}
	if in.CheckIn.Before(domain.Night(now)) {
		return domain.Invalid("check_in", "must not be in the past")
	}
	return nil
}

func emailMatches(stored, given string) bool {
	return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(given))
}
