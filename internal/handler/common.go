// Package handler defines the HTTP layer.  Handlers bind and validate
// input, call into the engine or the repositories, and translate domain
// sentinels to the stable error codes the clients key on.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/schedule"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// getMemberID extracts the member_id the JWT middleware stored in the
// context.  The JWT library decodes numeric claims as float64, so a
// type switch is unavoidable.
func getMemberID(c echo.Context) (uint64, error) {
	v := c.Get("member_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid member_id in context")
}

// domainError maps the booking and schedule sentinels onto HTTP status
// and code.  Anything unmapped is a 500 DB_ERROR; handlers call this
// only for errors coming out of the domain layer.
func domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "SLOT_NOT_FOUND"})
	case errors.Is(err, booking.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "SLOT_ALREADY_BOOKED"})
	case errors.Is(err, booking.ErrNotMember):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "NOT_MEMBER"})
	case errors.Is(err, booking.ErrNoCredits):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "NO_CREDITS"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND"})
	case errors.Is(err, booking.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ALREADY_CANCELLED"})
	case errors.Is(err, booking.ErrTargetNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "TARGET_NOT_FOUND"})
	case errors.Is(err, booking.ErrTargetBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "TARGET_BOOKED"})
	case errors.Is(err, booking.ErrTargetInPast):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "TARGET_IN_PAST"})
	case errors.Is(err, booking.ErrDuplicateStart):
		return c.JSON(http.StatusConflict, echo.Map{"error": "DUPLICATE_START"})
	case errors.Is(err, schedule.ErrDayNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "DAY_NOT_ALLOWED"})
	case errors.Is(err, schedule.ErrHourNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "HOUR_NOT_ALLOWED"})
	}
	c.Logger().Errorf("unhandled domain error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
}

// pathID parses a numeric :id style path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
