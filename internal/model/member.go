package model

import "time"

// Member is a coaching client with a pre-paid credit balance.  Each
// credit entitles the member to book exactly one slot.  The balance is
// only ever mutated through the guarded updates in the repository layer
// so it can never go negative.
type Member struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Credits      int64     `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
}

// Activated reports whether the member has completed the invite flow
// and can log in.
func (m *Member) Activated() bool { return m.PasswordHash != "" }
