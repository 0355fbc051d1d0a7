// Package router maps the HTTP surface onto handlers and middleware.
// Three access tiers exist: public (slot browsing and booking by
// email), member (JWT-protected self service) and admin (everything
// behind the X-ADMIN-KEY header).
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cscoaching/slot-booking/internal/config"
	"github.com/cscoaching/slot-booking/internal/handler"
	"github.com/cscoaching/slot-booking/internal/middleware"
)

// Handlers bundles every handler the routes need.
type Handlers struct {
	Auth          *handler.AuthHandler
	Slots         *handler.SlotHandler
	Bookings      *handler.BookingHandler
	Members       *handler.MemberHandler
	AdminMembers  *handler.AdminMemberHandler
	AdminSlots    *handler.AdminSlotHandler
	AdminBookings *handler.AdminBookingHandler
	AdminHolidays *handler.AdminHolidayHandler
}

// Register wires up the whole route table.  The rate limiter fronts
// everything under /v1; the response cache fronts only the public slot
// listing, where a short TTL of staleness is acceptable.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	v1 := e.Group("/v1", limiter)

	// Public: browse and book without a session.
	v1.GET("/slots", h.Slots.List, cache)
	v1.POST("/bookings", h.Bookings.Create)

	// Auth: login, token rotation and the invite activation flow.
	auth := v1.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/invites/:token", h.Auth.CheckInvite)
	auth.POST("/activate", h.Auth.Activate)

	// Member self service behind a bearer token.
	me := v1.Group("/me", middleware.MemberAuth(cfg.JWTSecret))
	me.GET("", h.Members.Me)
	me.GET("/bookings", h.Members.MyBookings)
	me.POST("/bookings/:id/cancel", h.Members.CancelBooking)

	// Admin surface behind the shared key header.
	admin := v1.Group("/admin", middleware.AdminKey(cfg.AdminKey))

	admin.GET("/members", h.AdminMembers.List)
	admin.POST("/members", h.AdminMembers.Create)
	admin.PATCH("/members/:id", h.AdminMembers.Update)
	admin.DELETE("/members/:id", h.AdminMembers.Delete)
	admin.POST("/members/:id/invite", h.AdminMembers.ResendInvite)

	admin.GET("/slots", h.AdminSlots.List)
	admin.POST("/slots", h.AdminSlots.Create)
	admin.PATCH("/slots/:id", h.AdminSlots.Update)
	admin.DELETE("/slots/:id", h.AdminSlots.Delete)
	admin.POST("/slots/:id/cancel", h.AdminSlots.Cancel)
	admin.POST("/maintenance", h.AdminSlots.Maintain)

	admin.GET("/bookings", h.AdminBookings.ListUpcoming)
	admin.POST("/bookings/:id/cancel", h.AdminBookings.Cancel)
	admin.POST("/bookings/:id/move", h.AdminBookings.Move)

	admin.GET("/holidays", h.AdminHolidays.List)
	admin.PUT("/holidays", h.AdminHolidays.Put)
	admin.DELETE("/holidays/:day", h.AdminHolidays.Delete)
}
