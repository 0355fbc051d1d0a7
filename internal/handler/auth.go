package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/config"
	"github.com/cscoaching/slot-booking/internal/repository"
	"github.com/cscoaching/slot-booking/internal/utils"
)

// AuthHandler serves login, token refresh, logout and the invite
// activation flow.  Members never self-register; the admin creates them
// and an invite token lets them set their first password.
type AuthHandler struct {
	Cfg   config.Config
	Store *repository.Store
}

func NewAuthHandler(cfg config.Config, store *repository.Store) *AuthHandler {
	if store == nil {
		panic("nil store passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Store: store}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type activateReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type memberPart struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Credits int64  `json:"credits"`
}
type authResp struct {
	Member  memberPart `json:"member"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Login verifies credentials and returns a fresh token pair.  Unknown
// emails, unactivated members and bad passwords all answer the same
// INVALID_LOGIN so the endpoint cannot be used to probe the roster.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Store.Members.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "INVALID_LOGIN"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	if !m.Activated() || !utils.VerifyPassword(m.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "INVALID_LOGIN"})
	}

	return h.issuePair(c, ctx, m.ID, m.Name, m.Email, m.Credits)
}

// Refresh rotates a refresh token: the old one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	memberID, err := h.Store.Tokens.FindValid(ctx, hash, time.Now())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
	}
	_ = h.Store.Tokens.Delete(ctx, hash)
	_ = h.Store.Tokens.PurgeExpired(ctx, time.Now())

	m, err := h.Store.Members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	return h.issuePair(c, ctx, m.ID, m.Name, m.Email, m.Credits)
}

// Logout revokes the presented refresh token.  It is idempotent on
// purpose: logging out twice is not an error worth surfacing.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.Tokens.Delete(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckInvite previews an invite so the activation form can greet the
// member by name.  Invalid tokens of any flavour are 400.
func (h *AuthHandler) CheckInvite(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Store.Invites.FindValid(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrInviteInvalid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_OR_EXPIRED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, p)
}

// Activate consumes an invite, sets the member's first password and
// logs them straight in.
func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := h.Store.Invites.FindValid(ctx, req.Token, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrInviteInvalid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_OR_EXPIRED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "SERVER_ERROR"})
	}
	if err := h.Store.Invites.Consume(ctx, req.Token, time.Now(), hash); err != nil {
		if errors.Is(err, repository.ErrInviteInvalid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_OR_EXPIRED"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	m, err := h.Store.Members.GetByID(ctx, p.MemberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return h.issuePair(c, ctx, m.ID, m.Name, m.Email, m.Credits)
}

func (h *AuthHandler) issuePair(c echo.Context, ctx context.Context, id uint64, name, email string, credits int64) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, "member", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "SERVER_ERROR"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "SERVER_ERROR"})
	}
	if err := h.Store.Tokens.Save(ctx, id, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	return c.JSON(http.StatusOK, authResp{
		Member:  memberPart{ID: id, Name: name, Email: email, Credits: credits},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
