package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/repository"
)

// AdminHolidayHandler manages the exclusion calendar.  A listed day
// produces no generated slots and is hidden from the public listing.
type AdminHolidayHandler struct {
	Store *repository.Store
}

func NewAdminHolidayHandler(store *repository.Store) *AdminHolidayHandler {
	if store == nil {
		panic("nil store passed to NewAdminHolidayHandler")
	}
	return &AdminHolidayHandler{Store: store}
}

// List returns every holiday in day order.
func (h *AdminHolidayHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	holidays, err := h.Store.Holidays.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"holidays": holidays})
}

type holidayReq struct {
	Day  string `json:"day"`
	Note string `json:"note"`
}

// Put adds or updates a holiday.  The day must be a YYYY-MM-DD
// business-local calendar day.
func (h *AdminHolidayHandler) Put(c echo.Context) error {
	var req holidayReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	req.Day = strings.TrimSpace(req.Day)
	if _, err := time.Parse("2006-01-02", req.Day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.Holidays.Upsert(ctx, req.Day, strings.TrimSpace(req.Note)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"day": req.Day, "note": req.Note})
}

// Delete unlists a holiday; the next maintenance run repopulates the
// day's slots.
func (h *AdminHolidayHandler) Delete(c echo.Context) error {
	day := strings.TrimSpace(c.Param("day"))
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.Holidays.Delete(ctx, day); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.NoContent(http.StatusNoContent)
}
