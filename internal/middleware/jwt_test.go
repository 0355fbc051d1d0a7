package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cscoaching/slot-booking/internal/utils"
)

func TestMemberAuthValidToken(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 7, "member", 15)
	require.NoError(t, err)

	e := echo.New()
	var gotID, gotRole interface{}
	h := MemberAuth("secret")(func(c echo.Context) error {
		gotID = c.Get("member_id")
		gotRole = c.Get("role")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), gotID)
	assert.Equal(t, "member", gotRole)
}

func TestMemberAuthRejects(t *testing.T) {
	e := echo.New()
	h := MemberAuth("secret")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	cases := map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not.a.jwt",
		"wrong secret": "",
	}
	wrong, err := utils.NewAccessToken("other", 7, "member", 15)
	require.NoError(t, err)
	cases["wrong secret"] = "Bearer " + wrong.Token

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			require.NoError(t, h(e.NewContext(req, rec)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
