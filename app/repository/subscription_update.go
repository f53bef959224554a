package repository

import (
	"time"

	"github.com/ManuelReschke/PrimePass/app/models"
)

// NullableTime distinguishes "leave unchanged" (Set=false) from an explicit
// write, where a nil Value clears the column.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// SetTime returns a NullableTime that writes v (nil clears the column).
func SetTime(v *time.Time) NullableTime {
	return NullableTime{Set: true, Value: v}
}

// SubscriptionUpdate is a typed partial update of the subscription columns on
// a user record. Nil pointers are left untouched; present fields overwrite.
type SubscriptionUpdate struct {
	Tier                  *string
	SubscriptionActive    *bool
	SubscriptionStartedAt NullableTime
	SubscriptionEndsAt    NullableTime
	AutoRenew             *bool
	LastPaymentID         *string
	LastPaymentAt         NullableTime
	TierUpdatedBy         *string
	PreviousTier          *string
	MembershipExpiredAt   NullableTime
}

// Columns returns the column assignments for the present fields only.
func (u SubscriptionUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.Tier != nil {
		cols["tier"] = *u.Tier
	}
	if u.SubscriptionActive != nil {
		cols["subscription_active"] = *u.SubscriptionActive
	}
	if u.SubscriptionStartedAt.Set {
		cols["subscription_started_at"] = u.SubscriptionStartedAt.Value
	}
	if u.SubscriptionEndsAt.Set {
		cols["subscription_ends_at"] = u.SubscriptionEndsAt.Value
	}
	if u.AutoRenew != nil {
		cols["auto_renew"] = *u.AutoRenew
	}
	if u.LastPaymentID != nil {
		cols["last_payment_id"] = *u.LastPaymentID
	}
	if u.LastPaymentAt.Set {
		cols["last_payment_at"] = u.LastPaymentAt.Value
	}
	if u.TierUpdatedBy != nil {
		cols["tier_updated_by"] = *u.TierUpdatedBy
	}
	if u.PreviousTier != nil {
		cols["previous_tier"] = *u.PreviousTier
	}
	if u.MembershipExpiredAt.Set {
		cols["membership_expired_at"] = u.MembershipExpiredAt.Value
	}
	return cols
}

// IsEmpty reports whether the update carries no fields.
func (u SubscriptionUpdate) IsEmpty() bool {
	return len(u.Columns()) == 0
}

// Apply overwrites the present fields on user in place.
func (u SubscriptionUpdate) Apply(user *models.User) {
	if u.Tier != nil {
		user.Tier = *u.Tier
	}
	if u.SubscriptionActive != nil {
		user.SubscriptionActive = *u.SubscriptionActive
	}
	if u.SubscriptionStartedAt.Set {
		user.SubscriptionStartedAt = copyTime(u.SubscriptionStartedAt.Value)
	}
	if u.SubscriptionEndsAt.Set {
		user.SubscriptionEndsAt = copyTime(u.SubscriptionEndsAt.Value)
	}
	if u.AutoRenew != nil {
		user.AutoRenew = *u.AutoRenew
	}
	if u.LastPaymentID != nil {
		user.LastPaymentID = *u.LastPaymentID
	}
	if u.LastPaymentAt.Set {
		user.LastPaymentAt = copyTime(u.LastPaymentAt.Value)
	}
	if u.TierUpdatedBy != nil {
		user.TierUpdatedBy = *u.TierUpdatedBy
	}
	if u.PreviousTier != nil {
		user.PreviousTier = *u.PreviousTier
	}
	if u.MembershipExpiredAt.Set {
		user.MembershipExpiredAt = copyTime(u.MembershipExpiredAt.Value)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ExpiryUpdate builds the downgrade for a user whose subscription ended at or
// before now. It reports false for users that are free, lifetime or still
// within their period.
func ExpiryUpdate(user *models.User, now time.Time) (SubscriptionUpdate, bool) {
	if !user.SubscriptionActive || user.SubscriptionEndsAt == nil || user.SubscriptionEndsAt.After(now) {
		return SubscriptionUpdate{}, false
	}
	free := models.TierFree
	inactive := false
	by := "system:expiry"
	previous := user.Tier
	return SubscriptionUpdate{
		Tier:                &free,
		SubscriptionActive:  &inactive,
		AutoRenew:           &inactive,
		TierUpdatedBy:       &by,
		PreviousTier:        &previous,
		MembershipExpiredAt: SetTime(&now),
	}, true
}
