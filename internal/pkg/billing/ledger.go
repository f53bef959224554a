package billing

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/PrimePass/app/models"
)

// Ledger is the idempotency guard keyed by processor payment id.
type Ledger struct {
	repo Repository
	now  Clock
}

// NewLedger creates a ledger on top of repo.
func NewLedger(repo Repository, now Clock) *Ledger {
	if now == nil {
		now = systemClock
	}
	return &Ledger{repo: repo, now: now}
}

// TryClaim atomically records the payment. It returns true when the payment
// id was already present, in which case nothing was written.
func (l *Ledger) TryClaim(ctx context.Context, n *PaymentNotification) (bool, error) {
	rec := &models.PaymentRecord{
		PaymentID:  n.PaymentID,
		Provider:   ProviderDaimo,
		EventType:  n.EventType,
		Status:     n.Status,
		UserID:     n.UserID,
		PlanID:     n.PlanID,
		Amount:     n.Amount,
		Currency:   n.Currency,
		RawPayload: string(n.RawPayload),
	}
	created, err := l.repo.CreatePaymentRecordIfNotExists(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("%w: claim payment %s: %w", ErrStoreWrite, n.PaymentID, err)
	}
	return !created, nil
}

// MarkProcessed stamps the outcome on a claimed payment. A nil procErr marks success.
func (l *Ledger) MarkProcessed(ctx context.Context, paymentID string, procErr error) error {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := l.repo.MarkPaymentProcessed(ctx, paymentID, l.now(), msg); err != nil {
		return fmt.Errorf("%w: mark payment %s processed: %w", ErrStoreWrite, paymentID, err)
	}
	return nil
}
