package domain

import "time"

const DateLayout = "2006-01-02"

// Night truncates t to midnight UTC of its UTC calendar date.
func Night(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseNight parses a YYYY-MM-DD string as a UTC night.
func ParseNight(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// NightKey is the map key used for per-night lookups.
func NightKey(t time.Time) string {
	return Night(t).Format(DateLayout)
}

// Nights returns every night in [checkIn, checkOut). It is empty when
// checkOut is not after checkIn.
func Nights(checkIn, checkOut time.Time) []time.Time {
	from, to := Night(checkIn), Night(checkOut)
	var nights []time.Time
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// NightCount is the number of whole nights between the two dates.
func NightCount(checkIn, checkOut time.Time) int {
	return int(Night(checkOut).Sub(Night(checkIn)).Hours() / 24)
}
