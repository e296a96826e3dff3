package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/db"
	"github.com/nekogravitycat/hotel-booking-backend/internal/user"
)

type testEnv struct {
	router    *gin.Engine
	container *Container
}

// setup builds the whole application against TEST_DB_DSN with empty tables.
func setup(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE TABLE public.bookings, public.rooms, public.users RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	c := NewContainer(Config{
		DBPool:     pool,
		JWTSecret:  "test-secret",
		JWTTTL:     30 * time.Minute,
		BcryptCost: 4, // Lower cost for testing purposes
		TaxRate:    decimal.RequireFromString("0.12"),
	})
	return &testEnv{router: c.Router, container: c}
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login registers a user, optionally promotes it and returns an access token.
func (e *testEnv) login(t *testing.T, email string, role auth.Role) string {
	t.Helper()
	ctx := context.Background()

	u, err := e.container.UserService.Register(ctx, user.RegisterRequest{
		Email: email, Password: "password123", DisplayName: email,
	})
	require.NoError(t, err)

	if role != auth.RoleGuest {
		_, err = e.container.UserService.Update(ctx, u.ID, user.UpdateUserRequest{Role: &role})
		require.NoError(t, err)
	}

	token, err := e.container.JWTManager.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestBookingFlow(t *testing.T) {
	e := setup(t)

	admin := e.login(t, "admin@example.com", auth.RoleAdmin)
	staff := e.login(t, "desk@example.com", auth.RoleStaff)
	guest := e.login(t, "guest@example.com", auth.RoleGuest)
	other := e.login(t, "other@example.com", auth.RoleGuest)

	// Rooms are created by admins only.
	roomBody := map[string]any{"name": "101", "type": "standard", "nightly_rate": "179", "max_adults": 2, "max_children": 1}
	require.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/v1/rooms", roomBody, staff).Code)
	w := e.do(http.MethodPost, "/v1/rooms", roomBody, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rm := decode[map[string]any](t, w)
	roomID := int64(rm["id"].(float64))

	in := calendar.Day(time.Now()).AddDate(0, 0, 30)
	out := in.AddDate(0, 0, 2)
	stay := map[string]any{
		"room_id":   roomID,
		"check_in":  in.Format(calendar.DateLayout),
		"check_out": out.Format(calendar.DateLayout),
		"adults":    2,
	}

	// Availability is public and priced.
	w = e.do(http.MethodPost, "/v1/availability", stay, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	avail := decode[struct {
		Items []struct {
			ID         int64  `json:"id"`
			TotalPrice string `json:"total_price"`
		} `json:"items"`
	}](t, w)
	require.Len(t, avail.Items, 1)
	assert.Equal(t, "400.96", avail.Items[0].TotalPrice)

	// Guest books.
	w = e.do(http.MethodPost, "/v1/bookings", stay, guest)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[map[string]any](t, w)
	id := int64(b["id"].(float64))
	assert.Equal(t, "pending", b["status"])
	assert.Equal(t, "400.96", b["total"])

	// The same nights are gone.
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/v1/bookings", stay, other).Code)
	w = e.do(http.MethodPost, "/v1/availability", stay, "")
	assert.Empty(t, decode[map[string][]any](t, w)["items"])

	// Another guest cannot see it; staff can.
	path := fmt.Sprintf("/v1/bookings/%d", id)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, path, nil, other).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, nil, staff).Code)

	// Only staff confirm.
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, path+"/confirm", nil, guest).Code)
	w = e.do(http.MethodPost, path+"/confirm", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode[map[string]any](t, w)["status"])

	// Check-in is not allowed before the arrival day.
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, path+"/check-in", nil, staff).Code)

	// Guest cancels; the nights free up and a second cancel is rejected.
	w = e.do(http.MethodPost, path+"/cancel", nil, guest)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode[map[string]any](t, w)["status"])
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, path+"/cancel", nil, guest).Code)

	assert.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/v1/bookings", stay, other).Code)
}

func TestConcurrentBookingsSameRoom(t *testing.T) {
	e := setup(t)

	admin := e.login(t, "admin@example.com", auth.RoleAdmin)
	guest := e.login(t, "guest@example.com", auth.RoleGuest)

	w := e.do(http.MethodPost, "/v1/rooms", map[string]any{"name": "201", "type": "suite", "nightly_rate": "320", "max_adults": 4}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	roomID := int64(decode[map[string]any](t, w)["id"].(float64))

	in := calendar.Day(time.Now()).AddDate(0, 0, 10)
	stay := map[string]any{
		"room_id":   roomID,
		"check_in":  in.Format(calendar.DateLayout),
		"check_out": in.AddDate(0, 0, 3).Format(calendar.DateLayout),
		"adults":    1,
	}

	const workers = 16
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.do(http.MethodPost, "/v1/bookings", stay, guest).Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}
