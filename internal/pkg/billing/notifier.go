package billing

import (
	"context"
	"time"
)

// EventKind names a notification raised by the billing flows.
type EventKind string

const (
	EventActivated         EventKind = "activated"
	EventActivationFailed  EventKind = "activation_failed"
	EventUnknownPlan       EventKind = "unknown_plan"
	EventInvalidMetadata   EventKind = "invalid_metadata"
	EventReviewSubmitted   EventKind = "review_submitted"
	EventReviewDuplicate   EventKind = "review_duplicate"
	EventReviewApproved    EventKind = "review_approved"
	EventReviewRejected    EventKind = "review_rejected"
	EventMembershipExpired EventKind = "membership_expired"
	EventBounced           EventKind = "bounced"
	EventClaimFailed       EventKind = "claim_failed"
)

// Event carries everything a notifier needs to render a message.
type Event struct {
	Kind        EventKind          `json:"kind"`
	UserID      string             `json:"user_id,omitempty"`
	PlanID      string             `json:"plan_id,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
	PaymentID   string             `json:"payment_id,omitempty"`
	ReviewID    string             `json:"review_id,omitempty"`
	Amount      string             `json:"amount,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Error       string             `json:"error,omitempty"`
	Note        string             `json:"note,omitempty"`
	State       *SubscriptionState `json:"state,omitempty"`
	At          time.Time          `json:"at"`
}

// Notifier delivers user and admin messages. Delivery is best-effort:
// callers log returned errors and never roll back state because of them.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, event Event) error
	NotifyAdmin(ctx context.Context, event Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyUser(context.Context, string, Event) error { return nil }
func (NopNotifier) NotifyAdmin(context.Context, Event) error        { return nil }
