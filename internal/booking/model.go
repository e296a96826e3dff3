package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrRoomNotFound      = apperror.New(http.StatusNotFound, "room not found")
	ErrInvalidRange      = apperror.Wrap(calendar.ErrInvalidRange, http.StatusBadRequest, "check-out must be after check-in")
	ErrCheckInPast       = apperror.New(http.StatusBadRequest, "check-in date cannot be in the past")
	ErrInvalidOccupants  = apperror.New(http.StatusBadRequest, "at least one adult is required and children cannot be negative")
	ErrGuestRequired     = apperror.New(http.StatusBadRequest, "guest name is required")
	ErrInvalidInput      = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrCapacityExceeded  = apperror.New(http.StatusUnprocessableEntity, "occupants exceed room capacity")
	ErrRoomUnavailable   = apperror.New(http.StatusConflict, "room is not available for the requested dates")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "booking status does not allow this action")
	ErrNotAuthorized     = apperror.New(http.StatusForbidden, "not authorized to access this booking")

	ErrIdempotencyMismatch   = apperror.New(http.StatusUnprocessableEntity, "idempotency key reused with a different request")
	ErrIdempotencyInProgress = apperror.New(http.StatusConflict, "a request with this idempotency key is still in progress")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
)

// Source records who created the booking.
type Source string

const (
	SourceGuest Source = "guest" // self-service
	SourceStaff Source = "staff" // front desk, walk-ins
)

// Guest identifies the occupant: a registered user, a free-text walk-in, or both.
type Guest struct {
	UserID *string
	Name   string
	Email  string
	Phone  string
}

type Booking struct {
	ID       int64
	RoomID   int64
	RoomName string
	Guest    Guest
	Adults   int
	Children int
	CheckIn  time.Time
	CheckOut time.Time

	// Commercial terms are fixed at booking time; later rate changes on the
	// room do not touch them.
	NightlyRate decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal

	Status          Status
	Source          Source
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reference is the guest-facing booking code, e.g. BK-000042.
func (b *Booking) Reference() string {
	return fmt.Sprintf("BK-%06d", b.ID)
}

func (b *Booking) Range() calendar.Range {
	return calendar.Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

func (b *Booking) Nights() int {
	return b.Range().Nights()
}

// OwnedBy reports whether the actor is the registered guest of the booking.
func (b *Booking) OwnedBy(a auth.Actor) bool {
	return b.Guest.UserID != nil && a.Owns(*b.Guest.UserID)
}

type Filter struct {
	UserID    string
	RoomID    int64
	Status    Status
	From      *time.Time // stays ending after this day
	To        *time.Time // stays starting before this day
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
