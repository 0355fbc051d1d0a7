package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/repository"
)

// AdminBookingHandler is the coach's view of the diary: upcoming
// sessions, cancellation with an explicit refund decision, and moving
// a member onto a different slot.
type AdminBookingHandler struct {
	Store  *repository.Store
	Engine *booking.Engine
}

func NewAdminBookingHandler(store *repository.Store, engine *booking.Engine) *AdminBookingHandler {
	if store == nil || engine == nil {
		panic("nil dependency passed to NewAdminBookingHandler")
	}
	return &AdminBookingHandler{Store: store, Engine: engine}
}

// ListUpcoming returns active bookings whose session has not started,
// soonest first, with member contact details inline.
func (h *AdminBookingHandler) ListUpcoming(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rows, err := h.Store.Bookings.ListUpcoming(ctx, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": rows})
}

// Cancel cancels any booking.  The credit comes back by default, the
// cutoff notwithstanding; refund=false withholds it, matching a
// no-show.
func (h *AdminBookingHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	refund := c.QueryParam("refund") != "false"

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Engine.CancelByAdmin(ctx, id, refund)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type moveReq struct {
	NewSlotID uint64 `json:"new_slot_id"`
}

// Move relocates an active booking onto a different open future slot.
// No credits change hands; the member is notified of the new time.
func (h *AdminBookingHandler) Move(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	var req moveReq
	if err := c.Bind(&req); err != nil || req.NewSlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slotID, err := h.Engine.Move(ctx, id, req.NewSlotID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "slot_id": slotID})
}
