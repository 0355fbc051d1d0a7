package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
)

// BookingHandler serves the public booking endpoint.  Booking is keyed
// by email rather than a session: members book from a link in their
// reminder emails without logging in.
type BookingHandler struct {
	Engine *booking.Engine
}

func NewBookingHandler(engine *booking.Engine) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine}
}

type bookReq struct {
	SlotID uint64 `json:"slot_id"`
	Email  string `json:"email"`
	Notes  string `json:"notes"`
}

// Create books a slot for the member identified by email, spending one
// credit.  All failure modes come back as stable codes via domainError.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.SlotID == 0 || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Engine.Book(ctx, req.SlotID, req.Email, strings.TrimSpace(req.Notes))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
