package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/app/repository"
)

const proofPaymentPrefix = "payment:"

// Webhook outcomes, also used as metric labels.
const (
	OutcomeUnauthorized     = "unauthorized"
	OutcomeInvalidPayload   = "invalid_payload"
	OutcomeIgnored          = "ignored"
	OutcomeBounced          = "bounced"
	OutcomeInvalidMetadata  = "invalid_metadata"
	OutcomeUnknownPlan      = "unknown_plan"
	OutcomeClaimFailed      = "claim_failed"
	OutcomeDuplicate        = "duplicate"
	OutcomeReviewPending    = "review_pending"
	OutcomeReviewFailed     = "review_failed"
	OutcomeActivated        = "activated"
	OutcomeActivationFailed = "activation_failed"
)

// WebhookRequest is the transport-independent view of a processor call.
type WebhookRequest struct {
	Body          []byte
	Signature     string
	Authorization string
}

// WebhookResult tells the transport what to answer. StatusCode is 200 for
// everything the processor must not retry.
type WebhookResult struct {
	StatusCode int                `json:"-"`
	Outcome    string             `json:"outcome"`
	PaymentID  string             `json:"payment_id,omitempty"`
	ReviewID   string             `json:"review_id,omitempty"`
	State      *SubscriptionState `json:"state,omitempty"`
	Err        error              `json:"-"`
}

// Dependencies wires a Service.
type Dependencies struct {
	Repo     Repository
	Users    repository.UserRepository
	Catalog  *Catalog
	Notifier Notifier
	Auth     Authenticator
	Clock    Clock
}

// Service is the payment intake pipeline plus the components it drives.
type Service struct {
	auth     Authenticator
	catalog  *Catalog
	ledger   *Ledger
	engine   *Engine
	reviews  *ReviewQueue
	failures *FailureLog
	expiry   *Expiry
	notifier Notifier
	now      Clock
}

// NewService creates a billing service from injected dependencies.
func NewService(deps Dependencies) *Service {
	now := deps.Clock
	if now == nil {
		now = systemClock
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	engine := NewEngine(deps.Users, now)
	return &Service{
		auth:     deps.Auth,
		catalog:  catalog,
		ledger:   NewLedger(deps.Repo, now),
		engine:   engine,
		reviews:  NewReviewQueue(deps.Repo, deps.Users, catalog, engine, notifier, now),
		failures: NewFailureLog(deps.Repo, now),
		expiry:   NewExpiry(deps.Users, catalog, notifier, now),
		notifier: notifier,
		now:      now,
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }
func (s *Service) Engine() *Engine { return s.engine }
func (s *Service) Reviews() *ReviewQueue { return s.reviews }
func (s *Service) Failures() *FailureLog { return s.failures }
func (s *Service) Expiry() *Expiry { return s.expiry }
func (s *Service) Ledger() *Ledger { return s.ledger }

// HandleWebhook authenticates, deduplicates and applies one processor
// notification. Once authenticated and parsed, every outcome except a
// failed ledger claim is acknowledged with 200 so the processor stops
// retrying; problems surface through failure records and admin alerts.
func (s *Service) HandleWebhook(ctx context.Context, req WebhookRequest) (res WebhookResult) {
	start := time.Now()
	defer func() {
		WebhookRequestsTotal.WithLabelValues(res.Outcome).Inc()
		WebhookDuration.WithLabelValues(res.Outcome).Observe(time.Since(start).Seconds())
	}()

	if !s.auth.Authenticate(req.Body, req.Signature, req.Authorization) {
		log.Warnf("[Webhook] Rejected payment webhook: authentication failed")
		return WebhookResult{StatusCode: http.StatusUnauthorized, Outcome: OutcomeUnauthorized, Err: ErrAuthentication}
	}

	n, err := ParsePaymentNotification(req.Body)
	if err != nil {
		log.Warnf("[Webhook] Rejected payment webhook: %v", err)
		return WebhookResult{StatusCode: http.StatusBadRequest, Outcome: OutcomeInvalidPayload, Err: err}
	}

	if n.EventType == EventPaymentBounced {
		log.Warnf("[Webhook] Payment %s for user %q bounced", n.PaymentID, n.UserID)
		if n.UserID != "" {
			s.notifyUser(ctx, n.UserID, s.eventFrom(n, EventBounced, nil))
		}
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeBounced, PaymentID: n.PaymentID}
	}

	if !n.IsCompleted() {
		log.Debugf("[Webhook] Ignoring event %s with status %q", n.EventType, n.Status)
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeIgnored, PaymentID: n.PaymentID}
	}

	if n.PaymentID == "" || n.UserID == "" || n.PlanID == "" {
		log.Warnf("[Webhook] Payment %q without user or plan metadata", n.PaymentID)
		s.failures.Record(ctx, s.failureFrom(n, FailureInvalidMetadata, "missing payment id, userId or planId"))
		s.notifyAdmin(ctx, s.eventFrom(n, EventInvalidMetadata, nil))
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeInvalidMetadata, PaymentID: n.PaymentID}
	}

	tier, err := s.catalog.Resolve(n.PlanID)
	if err != nil {
		log.Errorf("[Webhook] Payment %s for unknown plan %q", n.PaymentID, n.PlanID)
		s.failures.Record(ctx, s.failureFrom(n, FailureUnknownPlan, err.Error()))
		s.notifyAdmin(ctx, s.eventFrom(n, EventUnknownPlan, err))
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeUnknownPlan, PaymentID: n.PaymentID, Err: err}
	}

	already, err := s.ledger.TryClaim(ctx, n)
	if err != nil {
		// acknowledged like every other internal failure; the alert travels
		// over the queue because the database may be the thing that is down
		log.Errorf("[Webhook] %v", err)
		s.failures.Record(ctx, s.failureFrom(n, FailureClaim, err.Error()))
		s.notifyAdmin(ctx, s.eventFrom(n, EventClaimFailed, err))
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeClaimFailed, PaymentID: n.PaymentID, Err: err}
	}
	if already {
		log.Infof("[Webhook] Payment %s already processed, skipping", n.PaymentID)
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeDuplicate, PaymentID: n.PaymentID, Err: ErrDuplicateDelivery}
	}

	if !tier.AutoApprove {
		return s.routeToReview(ctx, n, tier)
	}

	state, err := s.engine.Activate(ctx, n.UserID, tier, n.PaymentID)
	if err != nil {
		log.Errorf("[Webhook] Activation of payment %s failed: %v", n.PaymentID, err)
		s.markProcessed(ctx, n.PaymentID, err)
		s.failures.Record(ctx, s.failureFrom(n, FailureActivation, err.Error()))
		event := s.eventFrom(n, EventActivationFailed, err)
		event.DisplayName = tier.DisplayName
		s.notifyUser(ctx, n.UserID, event)
		s.notifyAdmin(ctx, event)
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeActivationFailed, PaymentID: n.PaymentID, Err: err}
	}

	s.markProcessed(ctx, n.PaymentID, nil)
	event := s.eventFrom(n, EventActivated, nil)
	event.DisplayName = tier.DisplayName
	event.State = state
	s.notifyUser(ctx, n.UserID, event)
	return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeActivated, PaymentID: n.PaymentID, State: state}
}

// routeToReview turns a claimed payment for a manual tier into a pending
// review that references the payment.
func (s *Service) routeToReview(ctx context.Context, n *PaymentNotification, tier TierDefinition) WebhookResult {
	req, err := s.reviews.SubmitProof(ctx, n.UserID, tier.PlanID, StoredProof{Ref: proofPaymentPrefix + n.PaymentID})
	if err != nil {
		log.Errorf("[Webhook] Could not queue review for payment %s: %v", n.PaymentID, err)
		s.markProcessed(ctx, n.PaymentID, err)
		reason := FailureActivation
		kind := EventActivationFailed
		if errors.Is(err, ErrDuplicateSubmission) {
			reason = FailureDuplicateSubmission
			kind = EventReviewDuplicate
		}
		s.failures.Record(ctx, s.failureFrom(n, reason, err.Error()))
		event := s.eventFrom(n, kind, err)
		event.DisplayName = tier.DisplayName
		s.notifyAdmin(ctx, event)
		return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeReviewFailed, PaymentID: n.PaymentID, Err: err}
	}

	s.markProcessed(ctx, n.PaymentID, nil)
	return WebhookResult{StatusCode: http.StatusOK, Outcome: OutcomeReviewPending, PaymentID: n.PaymentID, ReviewID: req.ID}
}

// SubscriptionState returns the current snapshot for userID.
func (s *Service) SubscriptionState(ctx context.Context, userID string) (*SubscriptionState, error) {
	return s.expiry.State(ctx, userID)
}

func (s *Service) markProcessed(ctx context.Context, paymentID string, procErr error) {
	if err := s.ledger.MarkProcessed(ctx, paymentID, procErr); err != nil {
		log.Errorf("[Webhook] %v", err)
	}
}

func (s *Service) failureFrom(n *PaymentNotification, reason, msg string) *models.FailedActivation {
	return &models.FailedActivation{
		PaymentID:  n.PaymentID,
		UserID:     n.UserID,
		PlanID:     n.PlanID,
		Reason:     reason,
		Error:      msg,
		RawPayload: string(n.RawPayload),
	}
}

func (s *Service) eventFrom(n *PaymentNotification, kind EventKind, err error) Event {
	e := Event{
		Kind:      kind,
		UserID:    n.UserID,
		PlanID:    n.PlanID,
		PaymentID: n.PaymentID,
		Amount:    n.Amount,
		Currency:  n.Currency,
		At:        s.now(),
	}
	if err != nil {
		e.Reason = Kind(err)
		e.Error = err.Error()
	}
	return e
}

func (s *Service) notifyUser(ctx context.Context, userID string, event Event) {
	if err := s.notifier.NotifyUser(ctx, userID, event); err != nil {
		log.Warnf("[Webhook] Failed to notify user %s (%s): %v", userID, event.Kind, err)
	}
}

func (s *Service) notifyAdmin(ctx context.Context, event Event) {
	if err := s.notifier.NotifyAdmin(ctx, event); err != nil {
		log.Warnf("[Webhook] Failed to notify admins (%s): %v", event.Kind, err)
	}
}
