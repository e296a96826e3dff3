package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

type stubService struct {
	rooms map[int64]*room.Room
}

func (s *stubService) Create(_ context.Context, req room.CreateRequest) (*room.Room, error) {
	rm := &room.Room{
		ID: int64(len(s.rooms) + 1), Name: req.Name, Type: req.Type, NightlyRate: req.NightlyRate,
		MaxAdults: req.MaxAdults, MaxChildren: req.MaxChildren, BedCount: req.BedCount,
		IsActive: true, IsAvailable: true,
	}
	s.rooms[rm.ID] = rm
	return rm, nil
}

func (s *stubService) GetByID(_ context.Context, id int64) (*room.Room, error) {
	rm, ok := s.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	return rm, nil
}

func (s *stubService) List(_ context.Context, _ room.Filter) ([]*room.Room, int, error) {
	var out []*room.Room
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	return out, len(out), nil
}

func (s *stubService) ListBookable(_ context.Context, _ room.Query) ([]*room.Room, error) {
	return nil, nil
}

func (s *stubService) Update(_ context.Context, id int64, _ room.UpdateRequest) (*room.Room, error) {
	return s.GetByID(context.Background(), id)
}

func setupRouter(svc room.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	deny := func(c *gin.Context) { c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"}) }

	RegisterRoutes(r.Group("/v1"), NewHandler(svc), pass, deny)
	return r
}

func TestHandler_Get(t *testing.T) {
	svc := &stubService{rooms: map[int64]*room.Room{
		1: {ID: 1, Name: "101", Type: "deluxe", NightlyRate: decimal.NewFromInt(179), MaxAdults: 2, MaxChildren: 1, BedCount: 1, IsActive: true, IsAvailable: true},
	}}
	r := setupRouter(svc)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/v1/rooms/1", http.StatusOK},
		{"missing", "/v1/rooms/2", http.StatusNotFound},
		{"bad id", "/v1/rooms/abc", http.StatusBadRequest},
		{"zero id", "/v1/rooms/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/rooms/1", nil)
	r.ServeHTTP(w, req)

	var resp RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "179.00", resp.NightlyRate)
	assert.Equal(t, CapacityResponse{Adults: 2, Children: 1}, resp.Capacity)
}

func TestHandler_CreateRequiresAdmin(t *testing.T) {
	r := setupRouter(&stubService{rooms: map[int64]*room.Room{}})

	body := `{"name":"101","type":"standard","nightly_rate":"99.50","max_adults":2}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	RegisterRoutes(r.Group("/v1"), NewHandler(&stubService{rooms: map[int64]*room.Room{}}), pass, pass)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"name":"101","type":"standard","nightly_rate":"99.50","max_adults":2}`, http.StatusCreated},
		{"numeric rate", `{"name":"102","type":"standard","nightly_rate":120,"max_adults":1}`, http.StatusCreated},
		{"missing name", `{"type":"standard","nightly_rate":"99.50","max_adults":2}`, http.StatusBadRequest},
		{"no adults", `{"name":"103","type":"standard","nightly_rate":"99.50","max_adults":0}`, http.StatusBadRequest},
		{"negative rate", `{"name":"104","type":"standard","nightly_rate":"-1","max_adults":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
