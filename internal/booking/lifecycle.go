package booking

import (
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
)

// Event is an action requested on a booking.
type Event string

const (
	EventConfirm  Event = "confirm"
	EventCancel   Event = "cancel"
	EventCheckIn  Event = "check_in"
	EventCheckOut Event = "check_out"
	EventModify   Event = "modify"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventConfirm: StatusConfirmed,
		EventCancel:  StatusCancelled,
		EventModify:  StatusPending,
	},
	StatusConfirmed: {
		EventCancel:  StatusCancelled,
		EventCheckIn: StatusCheckedIn,
		EventModify:  StatusConfirmed,
	},
	StatusCheckedIn: {
		EventCheckOut: StatusCheckedOut,
	},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

// HoldsInventory reports whether a booking in this status blocks its room
// for its dates.
func (s Status) HoldsInventory() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCheckedIn
}

// IsTerminal reports whether no event can move a booking out of s.
func (s Status) IsTerminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled
}

// Next returns the status reached by applying e, or ErrInvalidTransition.
func (s Status) Next(e Event) (Status, error) {
	if s.IsTerminal() {
		return s, ErrInvalidTransition.Withf("booking is already %s", s)
	}
	to, ok := transitions[s][e]
	if !ok {
		return s, ErrInvalidTransition.Withf("cannot %s a %s booking", e, s)
	}
	return to, nil
}

// Transition applies e to b as of the calendar day today, enforcing the
// front-desk date gates: check-in no earlier than the check-in date and
// check-out no earlier than the check-out date.
func Transition(b *Booking, e Event, today time.Time) (Status, error) {
	to, err := b.Status.Next(e)
	if err != nil {
		return b.Status, err
	}

	day := calendar.Day(today)
	switch e {
	case EventCheckIn:
		if day.Before(b.CheckIn) {
			return b.Status, ErrInvalidTransition.Withf("cannot check in before %s", b.CheckIn.Format(calendar.DateLayout))
		}
	case EventCheckOut:
		if day.Before(b.CheckOut) {
			return b.Status, ErrInvalidTransition.Withf("cannot check out before %s", b.CheckOut.Format(calendar.DateLayout))
		}
	}
	return to, nil
}
