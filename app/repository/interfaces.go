package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/models"
)

// UserRepository is the user record store used by billing. Lookups of a
// missing user return gorm.ErrRecordNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// MergeSubscription applies update under a row lock and returns the
	// resulting record. It never creates a user.
	MergeSubscription(ctx context.Context, id string, update SubscriptionUpdate) (*models.User, error)
	// ExpireSubscription downgrades the user to free when, under the row
	// lock, the subscription is still active and ended at or before now.
	// It reports false when the row no longer qualifies.
	ExpireSubscription(ctx context.Context, id string, now time.Time) (*models.User, bool, error)
	// ListExpired returns active users whose subscription ended at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.User, error)
	// ListExpiring returns active users whose subscription ends within (now, until].
	ListExpiring(ctx context.Context, now, until time.Time) ([]models.User, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
	}
}
