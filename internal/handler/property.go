package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/roommate-booking/internal/middleware"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/service"
)

// PropertyService is the subset of *service.PropertyService the handler uses.
type PropertyService interface {
	Create(ctx context.Context, ownerID uint64, in service.CreatePropertyInput) (*model.Property, error)
	AddSeats(ctx context.Context, ownerID, propertyID uint64, count int) ([]model.Seat, error)
	ListSeats(ctx context.Context, propertyID uint64) ([]model.Seat, error)
	Availability(ctx context.Context, propertyID uint64) (service.Availability, error)
}

// PropertyHandler serves /api/properties.
type PropertyHandler struct {
	Properties PropertyService
}

func NewPropertyHandler(p PropertyService) *PropertyHandler {
	return &PropertyHandler{Properties: p}
}

type createPropertyReq struct {
	Title      string  `json:"title"`
	Address    *string `json:"address"`
	TotalSeats int     `json:"total_seats"`
}

type propertyResp struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Title     string    `json:"title"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type seatResp struct {
	ID            uint64     `json:"id"`
	Label         string     `json:"label"`
	Status        string     `json:"status"`
	LastVacatedAt *time.Time `json:"last_vacated_at,omitempty"`
}

func toSeatResps(seats []model.Seat) []seatResp {
	out := make([]seatResp, len(seats))
	for i, s := range seats {
		out[i] = seatResp{ID: s.ID, Label: s.Label, Status: string(s.Status), LastVacatedAt: s.LastVacatedAt}
	}
	return out
}

// Create handles POST /api/properties (LANDLORD only).
func (h *PropertyHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createPropertyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Properties.Create(ctx, uid, service.CreatePropertyInput{
		Title:      req.Title,
		Address:    req.Address,
		TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, propertyResp{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
	})
}

// AddSeats handles POST /api/properties/:id/seats with {"count": n}.
func (h *PropertyHandler) AddSeats(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid property id")
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	seats, err := h.Properties.AddSeats(ctx, uid, id, req.Count)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"property_id": id, "seats": toSeatResps(seats)})
}

// ListSeats handles GET /api/properties/:id/seats.
func (h *PropertyHandler) ListSeats(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid property id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	seats, err := h.Properties.ListSeats(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"property_id": id, "seats": toSeatResps(seats)})
}

// Availability handles GET /api/properties/:id/availability.  The numbers
// are a snapshot for display; approval re-checks under lock.
func (h *PropertyHandler) Availability(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid property id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	av, err := h.Properties.Availability(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}
