package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/config"
	"github.com/cscoaching/slot-booking/internal/model"
	"github.com/cscoaching/slot-booking/internal/repository"
	"github.com/cscoaching/slot-booking/internal/schedule"
)

// SlotHandler serves the public slot listing.
type SlotHandler struct {
	Cfg    config.Config
	Store  *repository.Store
	Policy schedule.Policy
}

func NewSlotHandler(cfg config.Config, store *repository.Store, policy schedule.Policy) *SlotHandler {
	if store == nil {
		panic("nil store passed to NewSlotHandler")
	}
	return &SlotHandler{Cfg: cfg, Store: store, Policy: policy}
}

type slotView struct {
	ID        uint64    `json:"id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	IsBooked  bool      `json:"is_booked"`
	Location  string    `json:"location,omitempty"`
	Day       string    `json:"day"`
	LocalTime string    `json:"local_time"`
}

// List returns slots from now to `days` ahead (default the configured
// horizon, clamped to [1,31]).  Only open slots are returned unless
// all=true; slots falling on a holiday are filtered out, with the
// holiday day keys returned alongside so clients can show why a day is
// empty; location= narrows to one venue.  Each entry carries the
// business-local day and wall-clock time so clients need no timezone
// logic of their own.
func (h *SlotHandler) List(c echo.Context) error {
	days := h.Cfg.HorizonDays
	if v := c.QueryParam("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	if days < 1 {
		days = 1
	}
	if days > 31 {
		days = 31
	}
	all := c.QueryParam("all") == "true"
	location := strings.TrimSpace(c.QueryParam("location"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	now := time.Now()
	to := now.AddDate(0, 0, days)
	slots, err := h.Store.Slots.ListWindow(ctx, now, to, !all)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	holidays, err := h.Store.Holidays.DaysBetween(ctx, h.Policy.DayKey(now), h.Policy.DayKey(to))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	loc := h.Policy.Location()
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		day := h.Policy.DayKey(s.StartAt)
		if holidays[day] {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(slotVenue(s, h.Policy)), strings.ToLower(location)) {
			continue
		}
		out = append(out, slotView{
			ID:        s.ID,
			StartAt:   s.StartAt,
			EndAt:     s.EndAt,
			IsBooked:  s.IsBooked,
			Location:  slotVenue(s, h.Policy),
			Day:       day,
			LocalTime: s.StartAt.In(loc).Format("15:04"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out, "days": days, "holidays": holidayKeys(holidays)})
}

// holidayKeys flattens the holiday set into a sorted list of day keys.
func holidayKeys(days map[string]bool) []string {
	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	return keys
}

// slotVenue resolves a blank stored location to the weekday's default
// venue, mirroring the blank-matches-default rule in the policy.
func slotVenue(s model.Slot, p schedule.Policy) string {
	if s.Location != "" {
		return s.Location
	}
	return p.DefaultLocation(s.StartAt.In(p.Location()).Weekday())
}
