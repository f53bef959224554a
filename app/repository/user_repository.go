package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PrimePass/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by platform id
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MergeSubscription performs a locked read-modify-write of the subscription columns.
func (r *userRepository) MergeSubscription(ctx context.Context, id string, update SubscriptionUpdate) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&user).Error; err != nil {
			return err
		}
		cols := update.Columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		update.Apply(&user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExpireSubscription downgrades an ended subscription to free
func (r *userRepository) ExpireSubscription(ctx context.Context, id string, now time.Time) (*models.User, bool, error) {
	var user models.User
	expired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&user).Error; err != nil {
			return err
		}
		update, ok := ExpiryUpdate(&user, now)
		if !ok {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(update.Columns()).Error; err != nil {
			return err
		}
		update.Apply(&user)
		expired = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, expired, nil
}

// ListExpired returns active subscriptions whose end date has passed
func (r *userRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 500
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("subscription_active = ? AND subscription_ends_at IS NOT NULL AND subscription_ends_at <= ?", true, now).
		Order("subscription_ends_at ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ListExpiring returns active subscriptions ending inside the given window
func (r *userRepository) ListExpiring(ctx context.Context, now, until time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("subscription_active = ? AND subscription_ends_at > ? AND subscription_ends_at <= ?", true, now, until).
		Order("subscription_ends_at ASC").
		Find(&users).Error
	return users, err
}
