// Package calendar holds the date arithmetic used by reservations.
// All dates are calendar days normalised to UTC midnight; stays are
// half-open ranges [CheckIn, CheckOut).
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("check-out must be after check-in")

// Day truncates t to the calendar day it falls on (in t's location) and
// returns that day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Range is a stay of whole nights: the guest occupies CheckIn and leaves on
// CheckOut, which stays free for the next arrival.
type Range struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewRange normalises both ends and rejects empty or inverted ranges.
func NewRange(checkIn, checkOut time.Time) (Range, error) {
	r := Range{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if !r.CheckOut.After(r.CheckIn) {
		return Range{}, ErrInvalidRange
	}
	return r, nil
}

// Nights returns the number of nights between the two dates.
func Nights(checkIn, checkOut time.Time) (int, error) {
	r, err := NewRange(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	return r.Nights(), nil
}

// Nights of a valid range; always >= 1 for ranges built by NewRange.
func (r Range) Nights() int {
	// Both ends are UTC midnights, so the difference is an exact multiple of 24h.
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

func (r Range) String() string {
	return r.CheckIn.Format(DateLayout) + " to " + r.CheckOut.Format(DateLayout)
}

// Overlaps reports whether two stays share at least one night.
// A check-out on day D does not collide with a check-in on day D.
func Overlaps(a, b Range) bool {
	return a.CheckIn.Before(b.CheckOut) && b.CheckIn.Before(a.CheckOut)
}
