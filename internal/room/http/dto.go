package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

// ListRoomsRequest defines query parameters for listing rooms.
type ListRoomsRequest struct {
	request.ListParams
	Type        string `form:"type"`
	IsActive    *bool  `form:"is_active"`
	IsAvailable *bool  `form:"is_available"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=id name type nightly_rate created_at"`
}

// Validate performs custom validation for ListRoomsRequest.
func (r *ListRoomsRequest) Validate() error {
	return nil
}

type CapacityResponse struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type RoomResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	NightlyRate string           `json:"nightly_rate"`
	Capacity    CapacityResponse `json:"capacity"`
	Beds        int              `json:"beds"`
	IsActive    bool             `json:"is_active"`
	IsAvailable bool             `json:"is_available"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func NewRoomResponse(r *room.Room) RoomResponse {
	return RoomResponse{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		NightlyRate: response.Money(r.NightlyRate),
		Capacity:    CapacityResponse{Adults: r.MaxAdults, Children: r.MaxChildren},
		Beds:        r.BedCount,
		IsActive:    r.IsActive,
		IsAvailable: r.IsAvailable,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type CreateRoomRequest struct {
	Name        string          `json:"name" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	NightlyRate decimal.Decimal `json:"nightly_rate"`
	MaxAdults   int             `json:"max_adults" binding:"required,min=1"`
	MaxChildren int             `json:"max_children" binding:"min=0"`
	BedCount    int             `json:"beds" binding:"omitempty,min=1"`
}

// Validate performs custom validation for CreateRoomRequest.
func (r *CreateRoomRequest) Validate() error {
	if r.NightlyRate.IsNegative() {
		return room.ErrInvalidRate
	}
	return nil
}

type UpdateRoomRequest struct {
	Name        *string          `json:"name"`
	Type        *string          `json:"type"`
	NightlyRate *decimal.Decimal `json:"nightly_rate"`
	MaxAdults   *int             `json:"max_adults" binding:"omitempty,min=1"`
	MaxChildren *int             `json:"max_children" binding:"omitempty,min=0"`
	BedCount    *int             `json:"beds" binding:"omitempty,min=1"`
	IsActive    *bool            `json:"is_active"`
	IsAvailable *bool            `json:"is_available"`
}

// Validate performs custom validation for UpdateRoomRequest.
func (r *UpdateRoomRequest) Validate() error {
	if r.NightlyRate != nil && r.NightlyRate.IsNegative() {
		return room.ErrInvalidRate
	}
	return nil
}
