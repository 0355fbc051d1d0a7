package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cscoaching/slot-booking/internal/notify"
)

func TestRenderLine(t *testing.T) {
	credits := int64(0)
	refunded := true

	cases := []struct {
		name string
		ev   notify.Event
		want string
	}{
		{
			"confirmation",
			notify.Event{Kind: notify.KindMemberConfirmation, BookingID: 9, MemberEmail: "jo@example.com",
				StartsAt: "2026-01-05T17:00:00Z", Location: "Hull", Credits: &credits, SentAt: "2026-01-01T00:00:00Z"},
			"[2026-01-01T00:00:00Z] Booking confirmed | booking_id=9 | to=jo@example.com | starts_at=2026-01-05T17:00:00Z | location=\"Hull\" | credits_left=0\n",
		},
		{
			"cancellation",
			notify.Event{Kind: notify.KindCancellation, BookingID: 9, MemberEmail: "jo@example.com",
				StartsAt: "2026-01-05T17:00:00Z", Refunded: &refunded, SentAt: "2026-01-01T00:00:00Z"},
			"[2026-01-01T00:00:00Z] Session cancelled | booking_id=9 | to=jo@example.com | starts_at=2026-01-05T17:00:00Z | refunded=true\n",
		},
		{
			"invite",
			notify.Event{Kind: notify.KindMemberInvite, MemberName: "Jo", MemberEmail: "jo@example.com",
				InviteToken: "abc123", SentAt: "2026-01-01T00:00:00Z"},
			"[2026-01-01T00:00:00Z] Invite | to=jo@example.com | member=\"Jo\" | token=abc123\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, renderLine(tc.ev))
		})
	}
}

func TestRenderLineUnknownKind(t *testing.T) {
	line := renderLine(notify.Event{Kind: "bogus", SentAt: "x"})
	assert.Contains(t, line, "Unknown event kind")
}
