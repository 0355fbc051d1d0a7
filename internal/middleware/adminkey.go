package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminHeader is the header carrying the shared admin secret.
const AdminHeader = "X-ADMIN-KEY"

// AdminKey gates the admin route group behind a shared secret header.
// An empty configured key disables the whole admin surface rather than
// leaving it open.
func AdminKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(AdminHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "ADMIN_ONLY"})
			}
			return next(c)
		}
	}
}
