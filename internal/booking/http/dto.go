package http

import (
	"strings"
	"time"

	"github.com/nekogravitycat/hotel-booking-backend/internal/booking"
	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/response"
)

// AvailabilityRequest is the body of the public availability check.
type AvailabilityRequest struct {
	CheckIn  string `json:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" binding:"required,datetime=2006-01-02"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
	RoomType string `json:"room_type"`
}

// Validate performs custom validation for AvailabilityRequest.
func (r *AvailabilityRequest) Validate() error {
	_, _, err := parseStay(r.CheckIn, r.CheckOut)
	return err
}

type CapacityResponse struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type AvailableRoomResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	PricePerNight string           `json:"price_per_night"`
	Nights        int              `json:"nights"`
	Subtotal      string           `json:"subtotal"`
	Tax           string           `json:"tax"`
	TotalPrice    string           `json:"total_price"`
	Capacity      CapacityResponse `json:"capacity"`
	Beds          int              `json:"beds"`
}

type AvailabilityResponse struct {
	Items []AvailableRoomResponse `json:"items"`
}

func NewAvailableRoomResponse(a booking.AvailableRoom) AvailableRoomResponse {
	return AvailableRoomResponse{
		ID:            a.Room.ID,
		Name:          a.Room.Name,
		Type:          a.Room.Type,
		PricePerNight: response.Money(a.Quote.NightlyRate),
		Nights:        a.Quote.Nights,
		Subtotal:      response.Money(a.Quote.Subtotal),
		Tax:           response.Money(a.Quote.Tax),
		TotalPrice:    response.Money(a.Quote.Total),
		Capacity:      CapacityResponse{Adults: a.Room.MaxAdults, Children: a.Room.MaxChildren},
		Beds:          a.Room.BedCount,
	}
}

type RoomTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type GuestResponse struct {
	UserID *string `json:"user_id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Phone  string  `json:"phone"`
}

type BookingResponse struct {
	ID              int64         `json:"id"`
	Reference       string        `json:"reference"`
	Room            RoomTag       `json:"room"`
	Guest           GuestResponse `json:"guest"`
	Adults          int           `json:"adults"`
	Children        int           `json:"children"`
	CheckIn         string        `json:"check_in"`
	CheckOut        string        `json:"check_out"`
	Nights          int           `json:"nights"`
	NightlyRate     string        `json:"nightly_rate"`
	Subtotal        string        `json:"subtotal"`
	Tax             string        `json:"tax"`
	Total           string        `json:"total"`
	Status          string        `json:"status"`
	Source          string        `json:"source"`
	SpecialRequests string        `json:"special_requests"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		Reference: b.Reference(),
		Room:      RoomTag{ID: b.RoomID, Name: b.RoomName},
		Guest: GuestResponse{
			UserID: b.Guest.UserID,
			Name:   b.Guest.Name,
			Email:  b.Guest.Email,
			Phone:  b.Guest.Phone,
		},
		Adults:          b.Adults,
		Children:        b.Children,
		CheckIn:         b.CheckIn.Format(calendar.DateLayout),
		CheckOut:        b.CheckOut.Format(calendar.DateLayout),
		Nights:          b.Nights(),
		NightlyRate:     response.Money(b.NightlyRate),
		Subtotal:        response.Money(b.Subtotal),
		Tax:             response.Money(b.Tax),
		Total:           response.Money(b.Total),
		Status:          string(b.Status),
		Source:          string(b.Source),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type GuestRequest struct {
	UserID *string `json:"user_id" binding:"omitempty,uuid"`
	Name   string  `json:"name" binding:"max=200"`
	Email  string  `json:"email" binding:"omitempty,email"`
	Phone  string  `json:"phone" binding:"max=32"`
}

type CreateBookingRequest struct {
	RoomID          int64        `json:"room_id" binding:"required,min=1"`
	CheckIn         string       `json:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut        string       `json:"check_out" binding:"required,datetime=2006-01-02"`
	Adults          int          `json:"adults"`
	Children        int          `json:"children"`
	Guest           GuestRequest `json:"guest"`
	SpecialRequests string       `json:"special_requests" binding:"max=2000"`
}

// Validate performs custom validation for CreateBookingRequest.
func (r *CreateBookingRequest) Validate() error {
	_, _, err := parseStay(r.CheckIn, r.CheckOut)
	return err
}

type ModifyBookingRequest struct {
	CheckIn         *string `json:"check_in" binding:"omitempty,datetime=2006-01-02"`
	CheckOut        *string `json:"check_out" binding:"omitempty,datetime=2006-01-02"`
	Adults          *int    `json:"adults"`
	Children        *int    `json:"children"`
	SpecialRequests *string `json:"special_requests" binding:"omitempty,max=2000"`
}

// Validate performs custom validation for ModifyBookingRequest.
func (r *ModifyBookingRequest) Validate() error {
	if r.CheckIn == nil && r.CheckOut == nil && r.Adults == nil && r.Children == nil && r.SpecialRequests == nil {
		return booking.ErrInvalidInput.Withf("no changes requested")
	}
	return nil
}

func (r *ModifyBookingRequest) toDomain() (booking.ModifyRequest, error) {
	req := booking.ModifyRequest{
		Adults:          r.Adults,
		Children:        r.Children,
		SpecialRequests: r.SpecialRequests,
	}
	if r.CheckIn != nil {
		d, err := calendar.ParseDay(*r.CheckIn)
		if err != nil {
			return req, booking.ErrInvalidInput.Withf("%v", err)
		}
		req.CheckIn = &d
	}
	if r.CheckOut != nil {
		d, err := calendar.ParseDay(*r.CheckOut)
		if err != nil {
			return req, booking.ErrInvalidInput.Withf("%v", err)
		}
		req.CheckOut = &d
	}
	return req, nil
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	RoomID int64  `form:"room_id" binding:"omitempty,min=1"`
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed checked_in checked_out cancelled"`
	UserID string `form:"user_id" binding:"omitempty,uuid"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=check_in check_out created_at status"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != "" && r.To != "" {
		if _, _, err := parseStay(r.From, r.To); err != nil {
			return err
		}
	}
	return nil
}

func (r *ListBookingsRequest) toFilter() booking.Filter {
	f := booking.Filter{
		UserID:    r.UserID,
		RoomID:    r.RoomID,
		Status:    booking.Status(r.Status),
		Page:      r.Page,
		PageSize:  r.PageSize,
		SortBy:    r.SortBy,
		SortOrder: strings.ToUpper(r.SortOrder),
	}
	if d, err := calendar.ParseDay(r.From); err == nil {
		f.From = &d
	}
	if d, err := calendar.ParseDay(r.To); err == nil {
		f.To = &d
	}
	return f
}

// parseStay parses both ends of a stay and checks their order.
func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := calendar.ParseDay(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, booking.ErrInvalidInput.Withf("%v", err)
	}
	out, err := calendar.ParseDay(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, booking.ErrInvalidInput.Withf("%v", err)
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, booking.ErrInvalidRange
	}
	return in, out, nil
}
