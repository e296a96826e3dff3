package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/booking"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/response"
)

// IdempotencyKeyHeader lets clients retry a create without double booking.
const IdempotencyKeyHeader = "Idempotency-Key"

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// actor returns the caller capability resolved by the actor middleware.
func actor(c *gin.Context) (auth.Actor, bool) {
	a, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Actor{}, false
	}
	return a, true
}

// Search lists rooms free for the requested stay and party, with prices.
// Access Control: Public.
func (h *Handler) Search(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	in, out, _ := parseStay(req.CheckIn, req.CheckOut)
	rooms, err := h.service.Search(c.Request.Context(), booking.Search{
		CheckIn:  in,
		CheckOut: out,
		Adults:   req.Adults,
		Children: req.Children,
		RoomType: req.RoomType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AvailableRoomResponse, len(rooms))
	for i, r := range rooms {
		items[i] = NewAvailableRoomResponse(r)
	}
	c.JSON(http.StatusOK, AvailabilityResponse{Items: items})
}

func (h *Handler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	in, out, _ := parseStay(body.CheckIn, body.CheckOut)
	b, err := h.service.Create(c.Request.Context(), a, booking.CreateRequest{
		RoomID:   body.RoomID,
		CheckIn:  in,
		CheckOut: out,
		Adults:   body.Adults,
		Children: body.Children,
		Guest: booking.Guest{
			UserID: body.Guest.UserID,
			Name:   body.Guest.Name,
			Email:  body.Guest.Email,
			Phone:  body.Guest.Phone,
		},
		SpecialRequests: body.SpecialRequests,
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

// List returns bookings visible to the caller: guests only see their own,
// staff may filter by room, status, user and date window.
func (h *Handler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	bookings, total, err := h.service.List(c.Request.Context(), a, req.toFilter())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(bookings, NewBookingResponse, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), a, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// Modify changes dates, occupants or special requests of a pending or
// confirmed booking.
func (h *Handler) Modify(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body ModifyBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	req, err := body.toDomain()
	if err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Modify(c.Request.Context(), a, uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

type transitionFunc func(svc booking.Service, ctx context.Context, actor auth.Actor, id int64) (*booking.Booking, error)

// transition adapts a lifecycle operation to a POST /bookings/:id/<action> handler.
// The service method is resolved per request.
func (h *Handler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}

		var uri request.ByIDRequest
		if err := c.ShouldBindUri(&uri); err != nil {
			response.BadRequest(c, "invalid request", err)
			return
		}

		b, err := fn(h.service, c.Request.Context(), a, uri.ID)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, NewBookingResponse(b))
	}
}

func (h *Handler) Cancel() gin.HandlerFunc   { return h.transition(booking.Service.Cancel) }
func (h *Handler) Confirm() gin.HandlerFunc  { return h.transition(booking.Service.Confirm) }
func (h *Handler) CheckIn() gin.HandlerFunc  { return h.transition(booking.Service.CheckIn) }
func (h *Handler) CheckOut() gin.HandlerFunc { return h.transition(booking.Service.CheckOut) }
