// Package notify defines the fire-and-forget notification seam between
// the booking engine and whatever delivers mail.  The engine publishes
// events strictly after its transaction commits; delivery failures are
// logged and never turn a successful booking into a reported failure.
package notify

import "context"

// Kind identifies the template a downstream worker should render.
type Kind string

const (
	KindAdminNewBooking    Kind = "admin.new_booking"
	KindMemberConfirmation Kind = "member.confirmation"
	KindZeroCredits        Kind = "member.zero_credits"
	KindReschedule         Kind = "member.reschedule"
	KindCancellation       Kind = "member.cancellation"
	KindMemberInvite       Kind = "member.invite"
)

// Event carries everything a consumer needs to render a notification
// without querying the primary database.  Timestamps are RFC3339 UTC.
// Fields irrelevant to a given kind are left zero and omitted from the
// JSON payload.
type Event struct {
	Kind        Kind   `json:"kind"`
	BookingID   uint64 `json:"booking_id,omitempty"`
	MemberName  string `json:"member_name,omitempty"`
	MemberEmail string `json:"member_email,omitempty"`
	StartsAt    string `json:"starts_at,omitempty"`
	EndsAt      string `json:"ends_at,omitempty"`
	OldStartsAt string `json:"old_starts_at,omitempty"`
	Location    string `json:"location,omitempty"`
	Credits     *int64 `json:"credits,omitempty"`
	Refunded    *bool  `json:"refunded,omitempty"`
	InviteToken string `json:"invite_token,omitempty"`
	SentAt      string `json:"sent_at"`
}

// Notifier is the collaborator interface the core depends on.  Every
// method is best-effort: implementations log their own failures and the
// returned error exists only so callers may log it too.  No caller may
// let a notification error influence a transaction outcome.
type Notifier interface {
	AdminNewBooking(ctx context.Context, ev Event) error
	MemberConfirmation(ctx context.Context, ev Event) error
	ZeroCredits(ctx context.Context, ev Event) error
	Reschedule(ctx context.Context, ev Event) error
	Cancellation(ctx context.Context, ev Event) error
	MemberInvite(ctx context.Context, ev Event) error
}
