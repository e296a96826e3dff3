package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	conflict := apperror.New(http.StatusConflict, "room unavailable")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"app error", conflict, http.StatusConflict, "room unavailable"},
		{"wrapped app error", fmt.Errorf("create: %w", conflict), http.StatusConflict, "room unavailable"},
		{"detailed app error", apperror.Wrap(conflict, http.StatusConflict, "room 3 is booked 2024-06-12 to 2024-06-14"), http.StatusConflict, "room 3 is booked 2024-06-12 to 2024-06-14"},
		{"unknown error is hidden", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Error(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestNewPageResponse_EmptyItems(t *testing.T) {
	resp := NewPageResponse[int](nil, 1, 20, 0)
	require.NotNil(t, resp.Items)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"page":1,"page_size":20,"total":0}`, string(raw))
}
