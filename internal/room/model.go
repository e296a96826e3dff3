package room

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "room not found")
	ErrEmptyName       = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrEmptyType       = apperror.New(http.StatusBadRequest, "type cannot be empty")
	ErrInvalidRate     = apperror.New(http.StatusBadRequest, "nightly rate must be non-negative")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, "room must hold at least one adult and a non-negative number of children")
	ErrInvalidBeds     = apperror.New(http.StatusBadRequest, "bed count must be at least 1")
)

// Room is a unit of hotel inventory.
type Room struct {
	ID          int64
	Name        string
	Type        string
	NightlyRate decimal.Decimal
	MaxAdults   int
	MaxChildren int
	BedCount    int
	IsActive    bool
	IsAvailable bool // housekeeping / maintenance flag, independent of bookings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fits reports whether the party fits the room's capacity.
func (r *Room) Fits(adults, children int) bool {
	return adults <= r.MaxAdults && children <= r.MaxChildren
}

// Bookable reports whether the room can take new reservations at all.
func (r *Room) Bookable() bool {
	return r.IsActive && r.IsAvailable
}

// Filter defines parameters for listing rooms.
type Filter struct {
	Type        string
	IsActive    *bool
	IsAvailable *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Query selects bookable rooms able to hold a party.
type Query struct {
	Adults   int
	Children int
	Type     string
}
