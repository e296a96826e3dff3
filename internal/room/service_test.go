package room

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu    sync.Mutex
	seq   int64
	rooms map[int64]*Room
}

func newMemRepo() *memRepo {
	return &memRepo{rooms: map[int64]*Room{}}
}

func (m *memRepo) Create(_ context.Context, rm *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rm.ID = m.seq
	rm.CreatedAt = time.Now().UTC()
	rm.UpdatedAt = rm.CreatedAt
	cp := *rm
	m.rooms[rm.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rm
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, filter Filter) ([]*Room, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Room
	for _, rm := range m.rooms {
		if filter.Type != "" && rm.Type != filter.Type {
			continue
		}
		cp := *rm
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) ListBookable(_ context.Context, q Query) ([]*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Room
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

func (m *memRepo) Update(_ context.Context, rm *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[rm.ID]; !ok {
		return ErrNotFound
	}
	rm.UpdatedAt = time.Now().UTC()
	cp := *rm
	m.rooms[rm.ID] = &cp
	return nil
}

func TestRoom_FitsAndBookable(t *testing.T) {
	rm := &Room{MaxAdults: 2, MaxChildren: 1, IsActive: true, IsAvailable: true}

	assert.True(t, rm.Fits(2, 1))
	assert.True(t, rm.Fits(1, 0))
	assert.False(t, rm.Fits(3, 0))
	assert.False(t, rm.Fits(2, 2))
	assert.True(t, rm.Bookable())

	rm.IsAvailable = false
	assert.False(t, rm.Bookable())
	rm.IsAvailable, rm.IsActive = true, false
	assert.False(t, rm.Bookable())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())

	rm, err := svc.Create(ctx, CreateRequest{
		Name:        " Room 101 ",
		Type:        "Deluxe",
		NightlyRate: decimal.RequireFromString("179.004"),
		MaxAdults:   2,
		MaxChildren: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rm.ID)
	assert.Equal(t, "Room 101", rm.Name)
	assert.Equal(t, "deluxe", rm.Type)
	assert.Equal(t, "179.00", rm.NightlyRate.StringFixed(2))
	assert.Equal(t, 1, rm.BedCount)
	assert.True(t, rm.Bookable())

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"empty name", CreateRequest{Type: "std", MaxAdults: 1}, ErrEmptyName},
		{"empty type", CreateRequest{Name: "A", MaxAdults: 1}, ErrEmptyType},
		{"negative rate", CreateRequest{Name: "A", Type: "std", NightlyRate: decimal.NewFromInt(-1), MaxAdults: 1}, ErrInvalidRate},
		{"no adults", CreateRequest{Name: "A", Type: "std"}, ErrInvalidCapacity},
		{"negative children", CreateRequest{Name: "A", Type: "std", MaxAdults: 1, MaxChildren: -1}, ErrInvalidCapacity},
		{"negative beds", CreateRequest{Name: "A", Type: "std", MaxAdults: 1, BedCount: -1}, ErrInvalidBeds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())

	rm, err := svc.Create(ctx, CreateRequest{Name: "101", Type: "standard", NightlyRate: decimal.NewFromInt(100), MaxAdults: 2})
	require.NoError(t, err)

	rate := decimal.NewFromInt(120)
	off := false
	updated, err := svc.Update(ctx, rm.ID, UpdateRequest{NightlyRate: &rate, IsAvailable: &off})
	require.NoError(t, err)
	assert.True(t, updated.NightlyRate.Equal(rate))
	assert.False(t, updated.Bookable())

	zero := 0
	_, err = svc.Update(ctx, rm.ID, UpdateRequest{MaxAdults: &zero})
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = svc.Update(ctx, 999, UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ListBookable(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())

	mk := func(name, typ string, adults, children int) *Room {
		rm, err := svc.Create(ctx, CreateRequest{Name: name, Type: typ, NightlyRate: decimal.NewFromInt(100), MaxAdults: adults, MaxChildren: children})
		require.NoError(t, err)
		return rm
	}
	single := mk("101", "standard", 1, 0)
	double := mk("102", "standard", 2, 1)
	suite := mk("201", "suite", 4, 2)
	closed := mk("202", "suite", 4, 2)

	off := false
	_, err := svc.Update(ctx, closed.ID, UpdateRequest{IsActive: &off})
	require.NoError(t, err)

	got, err := svc.ListBookable(ctx, Query{Adults: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{single.ID, double.ID, suite.ID}, ids(got))

	got, err = svc.ListBookable(ctx, Query{Adults: 2, Children: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{double.ID, suite.ID}, ids(got))

	got, err = svc.ListBookable(ctx, Query{Adults: 1, Type: " Suite"})
	require.NoError(t, err)
	assert.Equal(t, []int64{suite.ID}, ids(got))
}

func ids(rooms []*Room) []int64 {
	out := make([]int64, len(rooms))
	for i, rm := range rooms {
		out[i] = rm.ID
	}
	return out
}
