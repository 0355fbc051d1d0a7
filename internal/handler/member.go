package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/repository"
)

// MemberHandler serves the logged-in member's own views: profile,
// booking history and self-service cancellation.
type MemberHandler struct {
	Store  *repository.Store
	Engine *booking.Engine
}

func NewMemberHandler(store *repository.Store, engine *booking.Engine) *MemberHandler {
	if store == nil || engine == nil {
		panic("nil dependency passed to NewMemberHandler")
	}
	return &MemberHandler{Store: store, Engine: engine}
}

// Me returns the member's profile and credit balance.
func (h *MemberHandler) Me(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Store.Members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, m)
}

// MyBookings returns the member's full booking history, newest first,
// cancelled entries included so refunds are visible.
func (h *MemberHandler) MyBookings(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rows, err := h.Store.Bookings.ListByMember(ctx, memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": rows})
}

// CancelBooking cancels one of the member's own bookings.  Whether the
// credit comes back depends on the 24 hour cutoff; the response says
// which way it went.
func (h *MemberHandler) CancelBooking(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Engine.CancelByMember(ctx, bookingID, memberID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
