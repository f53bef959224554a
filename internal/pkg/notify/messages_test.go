package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
)

func TestUserMessage(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)

	tests := []struct {
		name     string
		event    billing.Event
		wantOK   bool
		contains []string
	}{
		{
			name: "activated with end date",
			event: billing.Event{Kind: billing.EventActivated, DisplayName: "Monthly Pass", State: &billing.SubscriptionState{
				SubscriptionStartedAt: &start, SubscriptionEndsAt: &end,
			}},
			wantOK:   true,
			contains: []string{"PRIME membership activated", "Monthly Pass", "Mar 1, 2025", "Mar 31, 2025"},
		},
		{
			name:     "lifetime approval",
			event:    billing.Event{Kind: billing.EventReviewApproved, PlanID: "lifetime_pass", State: &billing.SubscriptionState{SubscriptionStartedAt: &start}},
			wantOK:   true,
			contains: []string{"lifetime_pass", "never (lifetime)"},
		},
		{
			name:     "rejection escapes note",
			event:    billing.Event{Kind: billing.EventReviewRejected, Note: "amount <wrong>"},
			wantOK:   true,
			contains: []string{"amount &lt;wrong&gt;", "@support"},
		},
		{
			name:     "rejection without note",
			event:    billing.Event{Kind: billing.EventReviewRejected},
			wantOK:   true,
			contains: []string{"contact support"},
		},
		{
			name:     "activation failure apologizes",
			event:    billing.Event{Kind: billing.EventActivationFailed, PaymentID: "pay_1"},
			wantOK:   true,
			contains: []string{"@support", "pay_1"},
		},
		{
			name:     "expired",
			event:    billing.Event{Kind: billing.EventMembershipExpired, DisplayName: "Week Pass"},
			wantOK:   true,
			contains: []string{"expired", "Week Pass", "free tier"},
		},
		{
			name:     "bounced payment",
			event:    billing.Event{Kind: billing.EventBounced, PaymentID: "pay_2"},
			wantOK:   true,
			contains: []string{"Payment failed", "try again", "@support"},
		},
		{
			name:   "claim failure is admin-only",
			event:  billing.Event{Kind: billing.EventClaimFailed},
			wantOK: false,
		},
		{
			name:   "admin-only event",
			event:  billing.Event{Kind: billing.EventUnknownPlan},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := UserMessage(tt.event, "@support")
			assert.Equal(t, tt.wantOK, ok)
			for _, s := range tt.contains {
				assert.Contains(t, text, s)
			}
		})
	}
}

func TestAdminMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	subject, text := AdminMessage(billing.Event{
		Kind:      billing.EventUnknownPlan,
		UserID:    "77",
		PlanID:    "gold<script>",
		PaymentID: "pay_9",
		Amount:    "9.99",
		Currency:  "USD",
		At:        at,
	})

	assert.Equal(t, "PRIME billing alert: unknown plan", subject)
	assert.Contains(t, text, "unknown plan")
	assert.Contains(t, text, "<code>77</code>")
	assert.Contains(t, text, "gold&lt;script&gt;")
	assert.Contains(t, text, "9.99 USD")
	assert.Contains(t, text, "2025-03-01T12:00:00Z")
	assert.NotContains(t, text, "Review:")

	subject, _ = AdminMessage(billing.Event{Kind: billing.EventReviewSubmitted, DisplayName: "Lifetime Pass"})
	assert.Equal(t, "PRIME review pending: Lifetime Pass", subject)
}

func TestAdminMessageClaimFailure(t *testing.T) {
	subject, text := AdminMessage(billing.Event{Kind: billing.EventClaimFailed, PaymentID: "pay_3", Error: "store write failed"})
	assert.Equal(t, "PRIME billing alert: claim failed", subject)
	assert.Contains(t, text, "could not be recorded")
	assert.Contains(t, text, "pay_3")
}
