package billing

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/app/models"
)

const (
	FailureInvalidMetadata     = "invalid_metadata"
	FailureUnknownPlan         = "unknown_plan"
	FailureActivation          = "activation_failed"
	FailureClaim               = "claim_failed"
	FailureDuplicateSubmission = "duplicate_submission"
)

// FailureLog keeps failed activations for administrator reconciliation.
type FailureLog struct {
	repo Repository
	now  Clock
}

// NewFailureLog creates a failure log on top of repo.
func NewFailureLog(repo Repository, now Clock) *FailureLog {
	if now == nil {
		now = systemClock
	}
	return &FailureLog{repo: repo, now: now}
}

// Record writes rec. A failing write is logged and swallowed; the caller has
// nothing better to do with it than the log line.
func (f *FailureLog) Record(ctx context.Context, rec *models.FailedActivation) {
	FailedActivationsTotal.WithLabelValues(rec.Reason).Inc()
	if err := f.repo.CreateFailedActivation(ctx, rec); err != nil {
		log.Errorf("[Billing] Failed to record failed activation (payment %s, reason %s): %v", rec.PaymentID, rec.Reason, err)
	}
}

// List returns unresolved failures, or all of them when includeResolved is set.
func (f *FailureLog) List(ctx context.Context, includeResolved bool, limit int) ([]models.FailedActivation, error) {
	return f.repo.ListFailedActivations(ctx, includeResolved, limit)
}

// Resolve marks a failure as handled by resolvedBy.
func (f *FailureLog) Resolve(ctx context.Context, id uint, resolvedBy string) error {
	ok, err := f.repo.ResolveFailedActivation(ctx, id, resolvedBy, f.now())
	if err != nil {
		return fmt.Errorf("%w: resolve failed activation %d: %w", ErrStoreWrite, id, err)
	}
	if !ok {
		return ErrFailureNotFound
	}
	return nil
}
