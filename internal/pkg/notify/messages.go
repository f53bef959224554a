package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
)

const dateLayout = "Jan 2, 2006"

func esc(s string) string { return html.EscapeString(s) }

func tierName(e billing.Event) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.PlanID != "" {
		return e.PlanID
	}
	return "PRIME"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "never (lifetime)"
	}
	return t.UTC().Format(dateLayout)
}

// UserMessage renders the Telegram text for a user-facing event. It reports
// false for events users are not told about.
func UserMessage(e billing.Event, supportContact string) (string, bool) {
	var b strings.Builder
	switch e.Kind {
	case billing.EventActivated, billing.EventReviewApproved:
		b.WriteString("✅ <b>PRIME membership activated</b>\n\n")
		fmt.Fprintf(&b, "Tier: %s\n", esc(tierName(e)))
		if e.State != nil {
			if e.State.SubscriptionStartedAt != nil {
				fmt.Fprintf(&b, "Start: %s\n", formatDate(e.State.SubscriptionStartedAt))
			}
			fmt.Fprintf(&b, "Expires: %s\n", formatDate(e.State.SubscriptionEndsAt))
		}
		b.WriteString("\nWe'll remind you before your membership expires.")
	case billing.EventActivationFailed:
		b.WriteString("⚠️ <b>We received your payment</b>\n\n")
		b.WriteString("Your membership could not be activated automatically. ")
		b.WriteString("Our team has been alerted and will fix it shortly.\n")
		fmt.Fprintf(&b, "Support: %s", esc(supportContact))
		if e.PaymentID != "" {
			fmt.Fprintf(&b, "\nReference: <code>%s</code>", esc(e.PaymentID))
		}
	case billing.EventReviewSubmitted:
		b.WriteString("📨 <b>Proof received</b>\n\n")
		fmt.Fprintf(&b, "Your request for %s is waiting for review. ", esc(tierName(e)))
		b.WriteString("You'll get a message as soon as it is decided.")
	case billing.EventReviewRejected:
		b.WriteString("❌ <b>Activation request rejected</b>\n\n")
		note := e.Note
		if strings.TrimSpace(note) == "" {
			note = "Please contact support for more information."
		}
		fmt.Fprintf(&b, "Reason: %s\n", esc(note))
		fmt.Fprintf(&b, "Support: %s", esc(supportContact))
	case billing.EventBounced:
		b.WriteString("⚠️ <b>Payment failed</b>\n\n")
		b.WriteString("Your payment could not be completed and the funds were returned to the sending address. ")
		b.WriteString("Please try again.\n")
		fmt.Fprintf(&b, "Support: %s", esc(supportContact))
	case billing.EventMembershipExpired:
		b.WriteString("⏰ <b>Your PRIME membership has expired</b>\n\n")
		fmt.Fprintf(&b, "Your %s ended and your account is back on the free tier. ", esc(tierName(e)))
		b.WriteString("Renew any time to get access back.")
	default:
		return "", false
	}
	return b.String(), true
}

// AdminMessage renders the subject and Telegram text of an admin alert.
func AdminMessage(e billing.Event) (string, string) {
	subject := "PRIME billing alert: " + strings.ReplaceAll(string(e.Kind), "_", " ")

	var b strings.Builder
	switch e.Kind {
	case billing.EventReviewSubmitted:
		subject = "PRIME review pending: " + tierName(e)
		b.WriteString("📨 <b>Manual review pending</b>\n")
	case billing.EventUnknownPlan:
		b.WriteString("🚨 <b>Payment for unknown plan</b>\n")
	case billing.EventInvalidMetadata:
		b.WriteString("🚨 <b>Payment without user or plan metadata</b>\n")
	case billing.EventActivationFailed:
		b.WriteString("🚨 <b>Activation failed after payment</b>\n")
	case billing.EventClaimFailed:
		b.WriteString("🚨 <b>Payment could not be recorded</b>\nThe delivery was acknowledged; check the ledger and activate by hand.\n")
	case billing.EventReviewDuplicate:
		b.WriteString("⚠️ <b>Payment for a user with a pending review</b>\n")
	default:
		fmt.Fprintf(&b, "ℹ️ <b>%s</b>\n", esc(string(e.Kind)))
	}

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: <code>%s</code>\n", name, esc(value))
		}
	}
	field("User", e.UserID)
	field("Plan", e.PlanID)
	field("Payment", e.PaymentID)
	field("Review", e.ReviewID)
	if e.Amount != "" {
		field("Amount", strings.TrimSpace(e.Amount+" "+e.Currency))
	}
	field("Reason", e.Reason)
	field("Error", e.Error)
	if !e.At.IsZero() {
		field("At", e.At.UTC().Format(time.RFC3339))
	}
	return subject, b.String()
}
