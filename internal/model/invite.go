package model

import "time"

// Invite is a single-use activation token issued when the admin creates
// a member.  The member follows the invite link to set a password.
type Invite struct {
	ID        string    `json:"id"`
	MemberID  uint64    `json:"member_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}
