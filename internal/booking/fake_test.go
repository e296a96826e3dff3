package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

// memRepo is an in-memory Repository. InRoomTx serializes per room and
// undoes writes when fn fails, like a rolled back transaction.
type memRepo struct {
	mu       sync.Mutex
	seq      int64
	bookings map[int64]*Booking

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func newMemRepo() *memRepo {
	return &memRepo{
		bookings: map[int64]*Booking{},
		locks:    map[int64]*sync.Mutex{},
	}
}

func (m *memRepo) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b.ID = m.seq
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if filter.UserID != "" && (b.Guest.UserID == nil || *b.Guest.UserID != filter.UserID) {
			continue
		}
		if filter.RoomID != 0 && b.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) ListHolding(_ context.Context, roomID int64, rng calendar.Range) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.RoomID == roomID && b.Status.HoldsInventory() && calendar.Overlaps(b.Range(), rng) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) ListHoldingInRange(_ context.Context, rng calendar.Range) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.Status.HoldsInventory() && calendar.Overlaps(b.Range(), rng) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) roomLock(roomID int64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[roomID] = l
	}
	return l
}

func (m *memRepo) InRoomTx(_ context.Context, roomID int64, fn func(Repository) error) error {
	l := m.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	snapshot := make(map[int64]Booking, len(m.bookings))
	for id, b := range m.bookings {
		snapshot[id] = *b
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		for id, b := range m.bookings {
			if b.RoomID != roomID {
				continue
			}
			if prev, ok := snapshot[id]; ok {
				cp := prev
				m.bookings[id] = &cp
			} else {
				delete(m.bookings, id)
			}
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// holding returns the inventory-holding bookings of a room.
func (m *memRepo) holding(roomID int64) []*Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.RoomID == roomID && b.Status.HoldsInventory() {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

type memRooms struct {
	mu    sync.Mutex
	rooms map[int64]*room.Room
}

func newMemRooms(rooms ...*room.Room) *memRooms {
	m := &memRooms{rooms: map[int64]*room.Room{}}
	for _, rm := range rooms {
		m.rooms[rm.ID] = rm
	}
	return m
}

func (m *memRooms) GetByID(_ context.Context, id int64) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	cp := *rm
	return &cp, nil
}

func (m *memRooms) ListBookable(_ context.Context, q room.Query) ([]*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*room.Room
	for _, rm := range m.rooms {
		if !rm.Bookable() || !rm.Fits(q.Adults, q.Children) {
			continue
		}
		if q.Type != "" && rm.Type != q.Type {
			continue
		}
		cp := *rm
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRooms) setRate(id int64, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id].NightlyRate = rate
}

func testRoom(id int64, name, typ string, rate int64, adults, children int) *room.Room {
	return &room.Room{
		ID:          id,
		Name:        name,
		Type:        typ,
		NightlyRate: decimal.NewFromInt(rate),
		MaxAdults:   adults,
		MaxChildren: children,
		BedCount:    1,
		IsActive:    true,
		IsAvailable: true,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stay(in, out time.Time) calendar.Range {
	return calendar.Range{CheckIn: in, CheckOut: out}
}
