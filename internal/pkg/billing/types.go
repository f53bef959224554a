package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PrimePass/app/models"
)

const (
	ProviderDaimo = "daimo"

	EventPaymentCompleted = "payment_completed"
	EventPaymentBounced   = "payment_bounced"
	PaymentStatusComplete = "completed"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// PaymentNotification is the parsed processor notification. It only exists
// after the raw body passed authentication.
type PaymentNotification struct {
	EventType  string
	PaymentID  string
	Status     string
	Amount     string
	Currency   string
	UserID     string
	PlanID     string
	RawPayload []byte
}

// IsCompleted reports a settled payment.
func (n *PaymentNotification) IsCompleted() bool {
	return n.EventType == EventPaymentCompleted && n.Status == PaymentStatusComplete
}

// SubscriptionState is the read-only snapshot handed to the rest of the bot.
type SubscriptionState struct {
	UserID                string     `json:"user_id"`
	Tier                  string     `json:"tier"`
	SubscriptionActive    bool       `json:"subscription_active"`
	SubscriptionStartedAt *time.Time `json:"subscription_started_at,omitempty"`
	SubscriptionEndsAt    *time.Time `json:"subscription_ends_at"`
	AutoRenew             bool       `json:"auto_renew"`
	LastPaymentID         string     `json:"last_payment_id"`
	LastPaymentAt         *time.Time `json:"last_payment_at,omitempty"`
}

// StateFromUser copies the subscription columns of a user record.
func StateFromUser(u *models.User) SubscriptionState {
	return SubscriptionState{
		UserID:                u.ID,
		Tier:                  u.Tier,
		SubscriptionActive:    u.SubscriptionActive,
		SubscriptionStartedAt: u.SubscriptionStartedAt,
		SubscriptionEndsAt:    u.SubscriptionEndsAt,
		AutoRenew:             u.AutoRenew,
		LastPaymentID:         u.LastPaymentID,
		LastPaymentAt:         u.LastPaymentAt,
	}
}

// flexString accepts JSON strings and numbers; processors send ids and
// amounts in either form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type webhookEnvelope struct {
	Type    string `json:"type"`
	Payment *struct {
		ID       flexString `json:"id"`
		Status   string     `json:"status"`
		Amount   flexString `json:"amount"`
		Currency string     `json:"currency"`
		Metadata struct {
			UserID flexString `json:"userId"`
			PlanID string     `json:"planId"`
		} `json:"metadata"`
	} `json:"payment"`
}

// ParsePaymentNotification decodes the processor body. It must only be
// called on a body that already passed signature verification.
func ParsePaymentNotification(raw []byte) (*PaymentNotification, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(env.Type) == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}

	n := &PaymentNotification{
		EventType:  strings.ToLower(strings.TrimSpace(env.Type)),
		RawPayload: append([]byte(nil), raw...),
	}
	if env.Payment != nil {
		n.PaymentID = strings.TrimSpace(string(env.Payment.ID))
		n.Status = strings.ToLower(strings.TrimSpace(env.Payment.Status))
		n.Amount = strings.TrimSpace(string(env.Payment.Amount))
		n.Currency = strings.ToUpper(strings.TrimSpace(env.Payment.Currency))
		n.UserID = strings.TrimSpace(string(env.Payment.Metadata.UserID))
		n.PlanID = strings.ToLower(strings.TrimSpace(env.Payment.Metadata.PlanID))
	}
	return n, nil
}
