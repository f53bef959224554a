package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TierFree = "free"

	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// User is the platform member record. Onboarding owns its creation; the
// subscription columns are written only by the billing activation engine.
type User struct {
	ID                    string     `gorm:"primaryKey;type:varchar(64)" json:"id" validate:"required,max=64"`
	Username              string     `gorm:"type:varchar(150);default:''" json:"username" validate:"max=150"`
	Role                  string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"omitempty,oneof=user admin"`
	Tier                  string     `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	SubscriptionActive    bool       `gorm:"default:false;index" json:"subscription_active"`
	SubscriptionStartedAt *time.Time `gorm:"type:datetime;default:null" json:"subscription_started_at,omitempty"`
	SubscriptionEndsAt    *time.Time `gorm:"type:datetime;default:null;index" json:"subscription_ends_at,omitempty"`
	AutoRenew             bool       `gorm:"default:false" json:"auto_renew"`
	LastPaymentID         string     `gorm:"type:varchar(191);default:''" json:"last_payment_id"`
	LastPaymentAt         *time.Time `gorm:"type:datetime;default:null" json:"last_payment_at,omitempty"`
	TierUpdatedBy         string     `gorm:"type:varchar(50);default:''" json:"tier_updated_by"`
	PreviousTier          string     `gorm:"type:varchar(50);default:''" json:"previous_tier"`
	MembershipExpiredAt   *time.Time `gorm:"type:datetime;default:null" json:"membership_expired_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsPaid reports whether the user currently holds an active non-free tier.
func (u *User) IsPaid() bool {
	return u.SubscriptionActive && u.Tier != "" && u.Tier != TierFree
}

// IsLifetime reports an active grant without an end date.
func (u *User) IsLifetime() bool {
	return u.IsPaid() && u.SubscriptionEndsAt == nil
}
