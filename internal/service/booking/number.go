package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NumberGenerator produces human-readable booking numbers. Uniqueness is
// enforced by the store; a collision surfaces as a constraint violation.
type NumberGenerator func(now time.Time) string

// GenerateBookingNumber builds numbers like BK260110-1A2B3CF09E: a date
// prefix, the milliseconds of the day in base 36 and four random hex digits.
func GenerateBookingNumber(now time.Time) string {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	millis := now.Sub(midnight).Milliseconds()

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]

	return strings.ToUpper("BK" + now.Format("060102") + "-" + strconv.FormatInt(millis, 36) + random)
}

// TotalPrice is the stay price from a nightly price snapshot.
func TotalPrice(pricePerNightCents int64, nights int) int64 {
	return pricePerNightCents * int64(nights)
}
