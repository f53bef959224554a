package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/app/repository"
)

// Outcome is an administrator decision on a manual review.
type Outcome string

const (
	OutcomeApproved Outcome = models.ReviewStatusApproved
	OutcomeRejected Outcome = models.ReviewStatusRejected
)

// ParseOutcome accepts "approved"/"approve" and "rejected"/"reject".
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "approve":
		return OutcomeApproved, nil
	case "rejected", "reject":
		return OutcomeRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// StoredProof points at an uploaded proof-of-payment artifact.
type StoredProof struct {
	Ref         string
	ContentType string
}

// Decision is the result of deciding a review.
type Decision struct {
	Request *models.ManualReviewRequest `json:"request"`
	State   *SubscriptionState          `json:"state,omitempty"`
}

// ReviewQueue holds proof-of-payment submissions for tiers that need an
// administrator decision. At most one request per user is pending.
type ReviewQueue struct {
	repo     Repository
	users    repository.UserRepository
	catalog  *Catalog
	engine   *Engine
	failures *FailureLog
	notifier Notifier
	now      Clock
	newID    func() string
}

// NewReviewQueue wires a review queue.
func NewReviewQueue(repo Repository, users repository.UserRepository, catalog *Catalog, engine *Engine, notifier Notifier, now Clock) *ReviewQueue {
	if now == nil {
		now = systemClock
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ReviewQueue{
		repo:     repo,
		users:    users,
		catalog:  catalog,
		engine:   engine,
		failures: NewFailureLog(repo, now),
		notifier: notifier,
		now:      now,
		newID:    uuid.NewString,
	}
}

// Submit queues a review for planID with an already stored proof reference.
func (q *ReviewQueue) Submit(ctx context.Context, userID, planID, proofArtifactRef string) (*models.ManualReviewRequest, error) {
	return q.SubmitProof(ctx, userID, planID, StoredProof{Ref: proofArtifactRef})
}

// SubmitProof queues a review and alerts the administrators.
func (q *ReviewQueue) SubmitProof(ctx context.Context, userID, planID string, proof StoredProof) (*models.ManualReviewRequest, error) {
	tier, err := q.catalog.Resolve(planID)
	if err != nil {
		return nil, err
	}
	if tier.AutoApprove {
		return nil, fmt.Errorf("%w: %s", ErrAutoApproveTier, tier.PlanID)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserNotFound
	}
	if q.users != nil {
		if _, err := q.users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
			}
			return nil, fmt.Errorf("%w: load user %s: %w", ErrStoreWrite, userID, err)
		}
	}

	pending := userID
	req := &models.ManualReviewRequest{
		ID:               q.newID(),
		UserID:           userID,
		PendingUserID:    &pending,
		PlanID:           tier.PlanID,
		ProofArtifactRef: proof.Ref,
		ProofContentType: proof.ContentType,
		Status:           models.ReviewStatusPending,
		SubmittedAt:      q.now(),
	}
	if err := q.repo.CreateReviewRequest(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create review for user %s: %w", ErrStoreWrite, userID, err)
	}

	log.Infof("[ReviewQueue] Review %s submitted by user %s for %s", req.ID, userID, tier.PlanID)
	event := Event{
		Kind:        EventReviewSubmitted,
		UserID:      userID,
		PlanID:      tier.PlanID,
		DisplayName: tier.DisplayName,
		ReviewID:    req.ID,
		At:          req.SubmittedAt,
	}
	q.notifyUser(ctx, userID, event)
	q.notifyAdmin(ctx, event)
	return req, nil
}

// Get returns one request.
func (q *ReviewQueue) Get(ctx context.Context, requestID string) (*models.ManualReviewRequest, error) {
	return q.repo.GetReviewRequest(ctx, requestID)
}

// List returns requests in status (all when empty), oldest first.
func (q *ReviewQueue) List(ctx context.Context, status string, limit int) ([]models.ManualReviewRequest, error) {
	return q.repo.ListReviewRequests(ctx, status, limit)
}

// Decide records an administrator decision. Exactly one of several
// concurrent decisions on the same request wins; the rest get
// ErrAlreadyDecided. Approval activates the tier with payment id
// "review:<id>". When that activation fails the decision stays recorded and
// the error is returned together with the decision.
func (q *ReviewQueue) Decide(ctx context.Context, requestID string, outcome Outcome, decidedBy, note string) (*Decision, error) {
	if outcome != OutcomeApproved && outcome != OutcomeRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	now := q.now()
	ok, err := q.repo.DecideReviewRequest(ctx, requestID, string(outcome), decidedBy, note, now)
	if err != nil {
		return nil, fmt.Errorf("%w: decide review %s: %w", ErrStoreWrite, requestID, err)
	}
	if !ok {
		if _, err := q.repo.GetReviewRequest(ctx, requestID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDecided, requestID)
	}
	ReviewDecisionsTotal.WithLabelValues(string(outcome)).Inc()

	req, err := q.repo.GetReviewRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	decision := &Decision{Request: req}
	log.Infof("[ReviewQueue] Review %s %s by %s", req.ID, outcome, decidedBy)

	event := Event{
		UserID:      req.UserID,
		PlanID:      req.PlanID,
		DisplayName: q.catalog.DisplayName(req.PlanID),
		ReviewID:    req.ID,
		Note:        note,
		At:          now,
	}

	if outcome == OutcomeRejected {
		event.Kind = EventReviewRejected
		q.notifyUser(ctx, req.UserID, event)
		return decision, nil
	}

	paymentID := reviewPaymentPrefix + req.ID
	tier, err := q.catalog.Resolve(req.PlanID)
	if err == nil {
		decision.State, err = q.engine.Activate(ctx, req.UserID, tier, paymentID)
	}
	if err != nil {
		log.Errorf("[ReviewQueue] Activation for approved review %s failed: %v", req.ID, err)
		q.failures.Record(ctx, &models.FailedActivation{
			PaymentID: paymentID,
			UserID:    req.UserID,
			PlanID:    req.PlanID,
			Reason:    FailureActivation,
			Error:     err.Error(),
		})
		event.Kind = EventActivationFailed
		event.PaymentID = paymentID
		event.Reason = Kind(err)
		event.Error = err.Error()
		q.notifyAdmin(ctx, event)
		return decision, err
	}

	event.Kind = EventReviewApproved
	event.State = decision.State
	q.notifyUser(ctx, req.UserID, event)
	return decision, nil
}

func (q *ReviewQueue) notifyUser(ctx context.Context, userID string, event Event) {
	if err := q.notifier.NotifyUser(ctx, userID, event); err != nil {
		log.Warnf("[ReviewQueue] Failed to notify user %s (%s): %v", userID, event.Kind, err)
	}
}

func (q *ReviewQueue) notifyAdmin(ctx context.Context, event Event) {
	if err := q.notifier.NotifyAdmin(ctx, event); err != nil {
		log.Warnf("[ReviewQueue] Failed to notify admins (%s): %v", event.Kind, err)
	}
}
