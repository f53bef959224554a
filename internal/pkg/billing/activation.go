package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/repository"
)

const (
	ActivationSourcePayment = "payment"
	ActivationSourceReview  = "review"

	reviewPaymentPrefix = "review:"
)

// Engine applies a tier to a user record. It only ever merges the
// subscription columns and never creates users.
type Engine struct {
	users repository.UserRepository
	now   Clock
}

// NewEngine creates an activation engine.
func NewEngine(users repository.UserRepository, now Clock) *Engine {
	if now == nil {
		now = systemClock
	}
	return &Engine{users: users, now: now}
}

// Activate grants tier to userID starting now. paymentID is recorded as the
// last payment; approvals of manual reviews pass "review:<id>".
func (e *Engine) Activate(ctx context.Context, userID string, tier TierDefinition, paymentID string) (*SubscriptionState, error) {
	source := ActivationSourcePayment
	if strings.HasPrefix(paymentID, reviewPaymentPrefix) {
		source = ActivationSourceReview
	}

	state, err := e.activate(ctx, userID, tier, paymentID, source)
	result := "ok"
	if err != nil {
		result = Kind(err)
	}
	ActivationsTotal.WithLabelValues(source, result).Inc()
	return state, err
}

func (e *Engine) activate(ctx context.Context, userID string, tier TierDefinition, paymentID, source string) (*SubscriptionState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}

	now := e.now()
	active := true
	autoRenew := false
	tierID := tier.PlanID
	updatedBy := source
	update := repository.SubscriptionUpdate{
		Tier:                  &tierID,
		SubscriptionActive:    &active,
		SubscriptionStartedAt: repository.SetTime(&now),
		SubscriptionEndsAt:    repository.SetTime(tier.EndsAt(now)),
		AutoRenew:             &autoRenew,
		LastPaymentID:         &paymentID,
		LastPaymentAt:         repository.SetTime(&now),
		TierUpdatedBy:         &updatedBy,
	}

	user, err := e.users.MergeSubscription(ctx, userID, update)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: activate %s for user %s: %w", ErrStoreWrite, tier.PlanID, userID, err)
	}

	log.Infof("[Billing] Activated %s for user %s (payment %s)", tier.PlanID, userID, paymentID)
	state := StateFromUser(user)
	return &state, nil
}
