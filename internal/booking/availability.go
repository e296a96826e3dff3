package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pricing"
	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

// RoomCatalog is the read side of room inventory the engine depends on.
type RoomCatalog interface {
	GetByID(ctx context.Context, id int64) (*room.Room, error)
	ListBookable(ctx context.Context, q room.Query) ([]*room.Room, error)
}

// Search is an availability query for a party and a stay.
type Search struct {
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
	Children int
	RoomType string
}

// AvailableRoom is a free room together with the price of the requested stay.
type AvailableRoom struct {
	Room  *room.Room
	Quote pricing.Quote
}

// Index answers whether rooms are free over a date range. Its answers are
// read-time only; the booking service re-checks under the room lock.
type Index struct {
	repo  Repository
	rooms RoomCatalog
	calc  *pricing.Calculator
}

func NewIndex(repo Repository, rooms RoomCatalog, calc *pricing.Calculator) *Index {
	return &Index{repo: repo, rooms: rooms, calc: calc}
}

// Conflicts returns the inventory-holding bookings of the room overlapping
// rng, ignoring excludeID (0 excludes nothing).
func (i *Index) Conflicts(ctx context.Context, roomID int64, rng calendar.Range, excludeID int64) ([]*Booking, error) {
	return conflicts(ctx, i.repo, roomID, rng, excludeID)
}

func (i *Index) IsAvailable(ctx context.Context, roomID int64, rng calendar.Range, excludeID int64) (bool, error) {
	found, err := i.Conflicts(ctx, roomID, rng, excludeID)
	if err != nil {
		return false, err
	}
	return len(found) == 0, nil
}

// FindAvailableRooms lists bookable rooms that fit the party and are free
// for the whole stay, ordered by room id, each priced for the stay.
func (i *Index) FindAvailableRooms(ctx context.Context, q Search) ([]AvailableRoom, error) {
	if q.Adults < 1 || q.Children < 0 {
		return nil, ErrInvalidOccupants
	}
	rng, err := calendar.NewRange(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, ErrInvalidRange
	}

	candidates, err := i.rooms.ListBookable(ctx, room.Query{Adults: q.Adults, Children: q.Children, Type: q.RoomType})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []AvailableRoom{}, nil
	}

	holding, err := i.repo.ListHoldingInRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(holding))
	for _, b := range holding {
		if b.Status.HoldsInventory() && calendar.Overlaps(b.Range(), rng) {
			taken[b.RoomID] = true
		}
	}

	result := make([]AvailableRoom, 0, len(candidates))
	for _, rm := range candidates {
		if taken[rm.ID] {
			continue
		}
		quote, err := i.calc.Quote(rm.NightlyRate, rng.Nights())
		if err != nil {
			return nil, fmt.Errorf("price room %d: %w", rm.ID, err)
		}
		result = append(result, AvailableRoom{Room: rm, Quote: quote})
	}
	return result, nil
}

// lookupRoom fetches a room, translating the inventory's not-found error.
func (i *Index) lookupRoom(ctx context.Context, id int64) (*room.Room, error) {
	rm, err := i.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, room.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

func conflicts(ctx context.Context, repo Repository, roomID int64, rng calendar.Range, excludeID int64) ([]*Booking, error) {
	candidates, err := repo.ListHolding(ctx, roomID, rng)
	if err != nil {
		return nil, err
	}

	var found []*Booking
	for _, b := range candidates {
		if b.ID == excludeID || !b.Status.HoldsInventory() {
			continue
		}
		if calendar.Overlaps(b.Range(), rng) {
			found = append(found, b)
		}
	}
	return found, nil
}

// unavailable builds a RoomUnavailable error naming the taken dates.
func unavailable(found []*Booking) error {
	ranges := make([]string, len(found))
	for i, b := range found {
		ranges[i] = b.Range().String()
	}
	return ErrRoomUnavailable.Withf("room is already booked for %s", strings.Join(ranges, ", "))
}
