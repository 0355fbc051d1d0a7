package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminProbe(t *testing.T, configured, sent string) int {
	t.Helper()
	e := echo.New()
	h := AdminKey(configured)(func(c echo.Context) error {
		return c.String(http.StatusOK, "in")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sent != "" {
		req.Header.Set(AdminHeader, sent)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec.Code
}

func TestAdminKey(t *testing.T) {
	assert.Equal(t, http.StatusOK, adminProbe(t, "s3cret", "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, adminProbe(t, "s3cret", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, adminProbe(t, "s3cret", ""))
	// An empty configured key closes the surface entirely.
	assert.Equal(t, http.StatusUnauthorized, adminProbe(t, "", ""))
	assert.Equal(t, http.StatusUnauthorized, adminProbe(t, "", "anything"))
}
