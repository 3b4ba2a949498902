package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/roommate-booking/internal/middleware"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/service"
)

// BookingService is the subset of *service.BookingService the handler uses.
type BookingService interface {
	Create(ctx context.Context, tenantID uint64, in service.CreateBookingInput) (*model.Booking, error)
	UpdateStatus(ctx context.Context, callerID, bookingID uint64, target model.BookingStatus) (*model.Booking, error)
	CheckIn(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error)
	CheckOut(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error)
	Delete(ctx context.Context, callerID, bookingID uint64) error
	Get(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error)
	ListSent(ctx context.Context, tenantID uint64, page, size int) ([]model.Booking, error)
	ListReceived(ctx context.Context, landlordID uint64, page, size int) ([]model.Booking, error)
}

// BookingHandler serves /api/bookings.  Every route requires JWTAuth.
type BookingHandler struct {
	Bookings BookingService
}

func NewBookingHandler(b BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

type createBookingReq struct {
	PropertyID uint64  `json:"property_id"`
	ReceiverID uint64  `json:"receiver_id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Message    *string `json:"message"`
}

type bookingResp struct {
	ID           uint64     `json:"id"`
	TenantID     uint64     `json:"tenant_id"`
	LandlordID   uint64     `json:"landlord_id"`
	PropertyID   uint64     `json:"property_id"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Message      *string    `json:"message,omitempty"`
	Status       string     `json:"status"`
	SeatID       *uint64    `json:"seat_id"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:           b.ID,
		TenantID:     b.TenantID,
		LandlordID:   b.LandlordID,
		PropertyID:   b.PropertyID,
		StartDate:    b.StartDate.Format(dateLayout),
		EndDate:      b.EndDate.Format(dateLayout),
		Message:      b.Message,
		Status:       b.Status.String(),
		SeatID:       b.SeatID,
		CheckedInAt:  b.CheckedInAt,
		CheckedOutAt: b.CheckedOutAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return badRequest(c, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		return badRequest(c, "end_date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, uid, service.CreateBookingInput{
		PropertyID: req.PropertyID,
		ReceiverID: req.ReceiverID,
		StartDate:  start,
		EndDate:    end,
		Message:    req.Message,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// UpdateStatus handles PATCH /api/bookings/:id/status?status=CONFIRMED|REJECTED|CANCELLED.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	raw := c.QueryParam("status")
	if raw == "" {
		return badRequest(c, "status query parameter required")
	}
	target, err := model.ParseBookingStatus(raw)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.byID(c, func(ctx context.Context, uid, id uint64) (*model.Booking, error) {
		return h.Bookings.UpdateStatus(ctx, uid, id, target)
	})
}

// CheckIn handles POST /api/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	return h.byID(c, h.Bookings.CheckIn)
}

// CheckOut handles POST /api/bookings/:id/check-out.
func (h *BookingHandler) CheckOut(c echo.Context) error {
	return h.byID(c, h.Bookings.CheckOut)
}

func (h *BookingHandler) byID(c echo.Context, fn func(ctx context.Context, uid, id uint64) (*model.Booking, error)) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := fn(ctx, uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	return h.byID(c, h.Bookings.Get)
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Bookings.Delete(ctx, uid, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSent handles GET /api/bookings/sent.
func (h *BookingHandler) ListSent(c echo.Context) error {
	return h.list(c, h.Bookings.ListSent)
}

// ListReceived handles GET /api/bookings/received.
func (h *BookingHandler) ListReceived(c echo.Context) error {
	return h.list(c, h.Bookings.ListReceived)
}

func (h *BookingHandler) list(c echo.Context, fn func(ctx context.Context, uid uint64, page, size int) ([]model.Booking, error)) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	limit, offset := service.PageBounds(page, size)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := fn(ctx, uid, page, size)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, len(items))
	for i := range items {
		out[i] = toBookingResp(&items[i])
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data": out,
		"page": offset/limit + 1,
		"size": limit,
	})
}
