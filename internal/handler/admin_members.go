package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cscoaching/slot-booking/internal/notify"
	"github.com/cscoaching/slot-booking/internal/repository"
	"github.com/cscoaching/slot-booking/internal/utils"
)

// inviteTTL is how long an activation link stays usable.
const inviteTTL = 7 * 24 * time.Hour

// inviteTokenBytes yields 48 hex characters, the width of invites.id.
const inviteTokenBytes = 24

// AdminMemberHandler is the coach's roster management: create members
// with starting credits, adjust balances, resend invites, delete.
type AdminMemberHandler struct {
	Store    *repository.Store
	Notifier notify.Notifier
}

func NewAdminMemberHandler(store *repository.Store, notifier notify.Notifier) *AdminMemberHandler {
	if store == nil || notifier == nil {
		panic("nil dependency passed to NewAdminMemberHandler")
	}
	return &AdminMemberHandler{Store: store, Notifier: notifier}
}

// List returns the whole roster, newest first.
func (h *AdminMemberHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	members, err := h.Store.Members.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": members})
}

type createMemberReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Credits int64  `json:"credits"`
}

// Create registers a member and emails them an invite so they can set
// a password.  The invite dispatch is fire-and-forget; a dead broker
// never fails the creation, and the admin can resend later.
func (h *AdminMemberHandler) Create(c echo.Context) error {
	var req createMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Credits < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Store.Members.Create(ctx, strings.TrimSpace(req.Name), req.Email, req.Credits)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "DUPLICATE_EMAIL"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}

	token, err := h.issueInvite(ctx, id, strings.TrimSpace(req.Name), req.Email)
	if err != nil {
		// The member exists; report the invite failure without undoing
		// the creation so the admin can resend.
		return c.JSON(http.StatusCreated, echo.Map{"id": id, "invite_sent": false})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "invite_sent": true, "invite_token": token})
}

type updateMemberReq struct {
	Name    *string `json:"name"`
	Credits *int64  `json:"credits"`
}

// Update patches name and/or credits.  Absent fields stay untouched.
func (h *AdminMemberHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	var req updateMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}
	if req.Credits != nil && *req.Credits < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.Members.Update(ctx, id, req.Name, req.Credits); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	m, err := h.Store.Members.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, m)
}

// Delete removes a member.  Slots held by their active bookings are
// released back for sale; their history, invites and tokens cascade.
func (h *AdminMemberHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Store.DeleteMember(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ResendInvite issues a fresh invite for a member who has not yet
// activated.  Already activated members get a 409.
func (h *AdminMemberHandler) ResendInvite(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "MISSING_FIELDS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	m, err := h.Store.Members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	if m.Activated() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ALREADY_ACTIVATED"})
	}

	token, err := h.issueInvite(ctx, m.ID, m.Name, m.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, echo.Map{"invite_sent": true, "invite_token": token})
}

func newInviteToken() (string, error) {
	return utils.RandomHex(inviteTokenBytes)
}

// issueInvite creates the token row and dispatches the invite mail on
// its own goroutine.
func (h *AdminMemberHandler) issueInvite(ctx context.Context, memberID uint64, name, email string) (string, error) {
	token, err := newInviteToken()
	if err != nil {
		return "", err
	}
	if err := h.Store.Invites.Create(ctx, token, memberID, time.Now().Add(inviteTTL)); err != nil {
		return "", err
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Notifier.MemberInvite(nctx, notify.Event{
			MemberName:  name,
			MemberEmail: email,
			InviteToken: token,
		})
	}()
	return token, nil
}
