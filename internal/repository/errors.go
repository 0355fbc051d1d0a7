// Package repository is the MySQL persistence layer.  Each entity has
// its own repo; the composed Store in store.go additionally implements
// the atomic guarded operations the booking engine and the maintainer
// depend on.  Domain sentinels for those live in the booking package;
// the values below cover the auxiliary flows (membership admin, invite
// activation, token rotation).
package repository

import "errors"

// ErrMemberNotFound is returned when a member lookup matches no row.
var ErrMemberNotFound = errors.New("member not found")

// ErrDuplicateEmail is returned when creating a member with an email
// that is already registered (unique key on members.email).
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInviteInvalid is returned for unknown, used or expired invite
// tokens.  Callers must not distinguish the three cases to avoid
// leaking which tokens ever existed.
var ErrInviteInvalid = errors.New("invite invalid or expired")

// ErrTokenInvalid is the refresh-token analogue of ErrInviteInvalid.
var ErrTokenInvalid = errors.New("refresh token invalid or expired")
