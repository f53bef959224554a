package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/app/repository"
)

const (
	MembershipFree         = "free"
	MembershipLifetime     = "lifetime"
	MembershipActive       = "active"
	MembershipExpiringSoon = "expiring_soon"
	MembershipExpired      = "expired"

	expiringSoonWindow = 7 * 24 * time.Hour
	defaultExpiryBatch = 500
)

// Entitled reports whether the snapshot grants a paid tier at now.
func (s SubscriptionState) Entitled(now time.Time) bool {
	if !s.SubscriptionActive || s.Tier == "" || s.Tier == models.TierFree {
		return false
	}
	return s.SubscriptionEndsAt == nil || s.SubscriptionEndsAt.After(now)
}

// MembershipInfo is the user-facing summary of a subscription.
type MembershipInfo struct {
	UserID              string     `json:"user_id"`
	Tier                string     `json:"tier"`
	DisplayName         string     `json:"display_name"`
	Status              string     `json:"status"`
	SubscriptionEndsAt  *time.Time `json:"subscription_ends_at"`
	DaysRemaining       *int       `json:"days_remaining"`
	PreviousTier        string     `json:"previous_tier,omitempty"`
	MembershipExpiredAt *time.Time `json:"membership_expired_at,omitempty"`
}

// ExpiryReport summarizes one sweep.
type ExpiryReport struct {
	Checked int `json:"checked"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// Expiry downgrades ended subscriptions and answers membership queries.
type Expiry struct {
	users    repository.UserRepository
	catalog  *Catalog
	notifier Notifier
	now      Clock
	batch    int
}

// NewExpiry creates the expiry component.
func NewExpiry(users repository.UserRepository, catalog *Catalog, notifier Notifier, now Clock) *Expiry {
	if now == nil {
		now = systemClock
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Expiry{users: users, catalog: catalog, notifier: notifier, now: now, batch: defaultExpiryBatch}
}

// ExpireMemberships downgrades one batch of ended subscriptions to free.
// Users renewed between listing and downgrade are left alone.
func (e *Expiry) ExpireMemberships(ctx context.Context) (ExpiryReport, error) {
	now := e.now()
	var report ExpiryReport

	users, err := e.users.ListExpired(ctx, now, e.batch)
	if err != nil {
		return report, fmt.Errorf("list expired memberships: %w", err)
	}
	report.Checked = len(users)

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		previous := u.Tier
		updated, expired, err := e.users.ExpireSubscription(ctx, u.ID, now)
		if err != nil {
			report.Failed++
			log.Errorf("[Expiry] Failed to expire membership of user %s: %v", u.ID, err)
			continue
		}
		if !expired {
			continue
		}
		report.Expired++
		MembershipsExpiredTotal.Inc()
		log.Infof("[Expiry] Membership %s of user %s expired", previous, u.ID)

		state := StateFromUser(updated)
		event := Event{
			Kind:        EventMembershipExpired,
			UserID:      u.ID,
			PlanID:      previous,
			DisplayName: e.catalog.DisplayName(previous),
			State:       &state,
			At:          now,
		}
		if err := e.notifier.NotifyUser(ctx, u.ID, event); err != nil {
			log.Warnf("[Expiry] Failed to notify user %s: %v", u.ID, err)
		}
	}
	return report, nil
}

// State returns the stored subscription snapshot of userID.
func (e *Expiry) State(ctx context.Context, userID string) (*SubscriptionState, error) {
	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := StateFromUser(u)
	return &state, nil
}

// Entitled reports whether userID currently holds a paid tier. Unknown
// users are not entitled.
func (e *Expiry) Entitled(ctx context.Context, userID string) (bool, error) {
	state, err := e.State(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state.Entitled(e.now()), nil
}

// MembershipInfo computes the status shown to the user.
func (e *Expiry) MembershipInfo(ctx context.Context, userID string) (*MembershipInfo, error) {
	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return membershipInfoAt(u, e.catalog, e.now()), nil
}

// Expiring returns active subscriptions ending within the given window.
func (e *Expiry) Expiring(ctx context.Context, within time.Duration) ([]MembershipInfo, error) {
	now := e.now()
	users, err := e.users.ListExpiring(ctx, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	out := make([]MembershipInfo, 0, len(users))
	for i := range users {
		out = append(out, *membershipInfoAt(&users[i], e.catalog, now))
	}
	return out, nil
}

func (e *Expiry) loadUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := e.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func membershipInfoAt(u *models.User, catalog *Catalog, now time.Time) *MembershipInfo {
	info := &MembershipInfo{
		UserID:              u.ID,
		Tier:                u.Tier,
		DisplayName:         catalog.DisplayName(u.Tier),
		SubscriptionEndsAt:  u.SubscriptionEndsAt,
		PreviousTier:        u.PreviousTier,
		MembershipExpiredAt: u.MembershipExpiredAt,
	}

	switch {
	case !u.IsPaid():
		info.Status = MembershipFree
		if u.MembershipExpiredAt != nil && u.PreviousTier != "" {
			info.Status = MembershipExpired
		}
	case u.SubscriptionEndsAt == nil:
		info.Status = MembershipLifetime
	case !u.SubscriptionEndsAt.After(now):
		info.Status = MembershipExpired
		zero := 0
		info.DaysRemaining = &zero
	default:
		remaining := u.SubscriptionEndsAt.Sub(now)
		d := int(math.Ceil(remaining.Hours() / 24))
		info.DaysRemaining = &d
		info.Status = MembershipActive
		if remaining <= expiringSoonWindow {
			info.Status = MembershipExpiringSoon
		}
	}
	return info
}
