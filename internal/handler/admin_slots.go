package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/booking"
	"github.com/cscoaching/slot-booking/internal/config"
	"github.com/cscoaching/slot-booking/internal/maintenance"
	"github.com/cscoaching/slot-booking/internal/notify"
	"github.com/cscoaching/slot-booking/internal/repository"
	"github.com/cscoaching/slot-booking/internal/schedule"
)

// AdminSlotHandler is the coach's calendar management: ad-hoc slot
// creation, reschedules, deletion and the manual maintenance trigger.
type AdminSlotHandler struct {
	Cfg        config.Config
	Store      *repository.Store
	Policy     schedule.Policy
	Engine     *booking.Engine
	Maintainer *maintenance.Maintainer
	Notifier   notify.Notifier
}

func NewAdminSlotHandler(cfg config.Config, store *repository.Store, policy schedule.Policy,
	engine *booking.Engine, maint *maintenance.Maintainer, notifier notify.Notifier) *AdminSlotHandler {
	if store == nil || engine == nil || maint == nil || notifier == nil {
		panic("nil dependency passed to NewAdminSlotHandler")
	}
	return &AdminSlotHandler{Cfg: cfg, Store: store, Policy: policy, Engine: engine, Maintainer: maint, Notifier: notifier}
}

// List returns every slot, past and future, newest first.
func (h *AdminSlotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slots, err := h.Store.Slots.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

type createSlotReq struct {
	StartAt         string `json:"start_at"`
	Location        string `json:"location"`
	DurationMinutes int    `json:"duration_minutes"`
	Force           bool   `json:"force"`
}

// slotSpan parses an RFC3339 start and derives the end from the
// duration override in minutes, falling back to the default when the
// override is absent.
func slotSpan(startRaw string, durationMin, defaultMin int) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if durationMin < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("negative duration %d", durationMin)
	}
	if durationMin == 0 {
		durationMin = defaultMin
	}
	return start, start.Add(time.Duration(durationMin) * time.Minute), nil
}

// Create adds one ad-hoc slot, optionally with a non-standard length.
// The start must satisfy the weekday and hour policy unless force is
// set, which lets the coach open a one-off session outside normal
// hours.  A slot already occupying that start instant is a
// DUPLICATE_START conflict.
func (h *AdminSlotHandler) Create(c echo.Context) error {
	var req createSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	start, end, err := slotSpan(req.StartAt, req.DurationMinutes, h.Cfg.SlotDurationMin)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	if !start.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "TARGET_IN_PAST"})
	}
	location := strings.TrimSpace(req.Location)
	if !req.Force {
		if err := h.Policy.IsBookable(start, location); err != nil {
			return domainError(c, err)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, created, err := h.Store.InsertSlot(ctx, start, end, location)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	if !created {
		return domainError(c, booking.ErrDuplicateStart)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "start_at": start.UTC(), "end_at": end.UTC(), "location": location})
}

type rescheduleSlotReq struct {
	StartAt  string `json:"start_at"`
	Location string `json:"location"`
	Force    bool   `json:"force"`
}

// Update moves a slot to a new start and/or venue.  When the slot is
// actively booked the member gets a reschedule notice with the old and
// new times, fire-and-forget.
func (h *AdminSlotHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	var req rescheduleSlotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	start, end, err := slotSpan(req.StartAt, 0, h.Cfg.SlotDurationMin)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	if !start.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "TARGET_IN_PAST"})
	}
	location := strings.TrimSpace(req.Location)
	if !req.Force {
		if err := h.Policy.IsBookable(start, location); err != nil {
			return domainError(c, err)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	slot, err := h.Store.SlotByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}

	if err := h.Store.Slots.Reschedule(ctx, id, start, end, location); err != nil {
		return domainError(c, err)
	}

	if bookingID, err := h.Store.Slots.ActiveBookingID(ctx, id); err == nil {
		if det, derr := h.Store.Bookings.GetDetail(ctx, bookingID); derr == nil {
			ev := notify.Event{
				BookingID:   bookingID,
				MemberName:  det.Member.Name,
				MemberEmail: det.Member.Email,
				OldStartsAt: slot.StartAt.UTC().Format(time.RFC3339),
				StartsAt:    start.UTC().Format(time.RFC3339),
				EndsAt:      end.UTC().Format(time.RFC3339),
				Location:    location,
			}
			go func() {
				nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = h.Notifier.Reschedule(nctx, ev)
			}()
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"id": id, "start_at": start.UTC(), "end_at": end.UTC(), "location": location})
}

// Delete removes a slot that is open and has no booking history.
// Anything else is refused so member records never dangle.
func (h *AdminSlotHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	deleted, err := h.Store.Slots.DeleteUnbooked(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	if !deleted {
		if _, err := h.Store.SlotByID(ctx, id); err != nil {
			return domainError(c, err)
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "SLOT_ALREADY_BOOKED"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel cancels whatever active booking holds this slot, freeing the
// slot back up for sale.  The member's credit comes back unless
// refund=false says otherwise.
func (h *AdminSlotHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	refund := c.QueryParam("refund") != "false"

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	bookingID, err := h.Store.Slots.ActiveBookingID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, serr := h.Store.SlotByID(ctx, id); serr != nil {
				return domainError(c, serr)
			}
			return c.JSON(http.StatusConflict, echo.Map{"error": "SLOT_NOT_BOOKED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	res, err := h.Engine.CancelByAdmin(ctx, bookingID, refund)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": bookingID, "refunded": res.Refunded})
}

// Maintain runs the purge-and-regenerate cycle on demand with an
// optional ?days= horizon override.
func (h *AdminSlotHandler) Maintain(c echo.Context) error {
	days := h.Cfg.HorizonDays
	if v := c.QueryParam("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.Maintainer.Run(ctx, days)
	if err != nil {
		c.Logger().Errorf("maintenance run failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, res)
}
