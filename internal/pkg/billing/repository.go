package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PrimePass/app/models"
)

// Repository provides the DB operations used by the billing service: the
// payment ledger, manual review requests and failed activation records.
type Repository interface {
	// CreatePaymentRecordIfNotExists inserts rec unless its payment id is
	// already present. It reports whether this call created the row.
	CreatePaymentRecordIfNotExists(ctx context.Context, rec *models.PaymentRecord) (bool, error)
	MarkPaymentProcessed(ctx context.Context, paymentID string, processedAt time.Time, processingError string) error
	GetPaymentRecord(ctx context.Context, paymentID string) (*models.PaymentRecord, error)

	// CreateReviewRequest returns ErrDuplicateSubmission when the user
	// already has a pending request.
	CreateReviewRequest(ctx context.Context, req *models.ManualReviewRequest) error
	// GetReviewRequest returns ErrReviewNotFound for unknown ids.
	GetReviewRequest(ctx context.Context, id string) (*models.ManualReviewRequest, error)
	ListReviewRequests(ctx context.Context, status string, limit int) ([]models.ManualReviewRequest, error)
	// DecideReviewRequest moves a pending request to status. It reports false
	// when the request was not pending any more.
	DecideReviewRequest(ctx context.Context, id, status, decidedBy, note string, decidedAt time.Time) (bool, error)

	CreateFailedActivation(ctx context.Context, rec *models.FailedActivation) error
	ListFailedActivations(ctx context.Context, includeResolved bool, limit int) ([]models.FailedActivation, error)
	ResolveFailedActivation(ctx context.Context, id uint, resolvedBy string, resolvedAt time.Time) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePaymentRecordIfNotExists(ctx context.Context, rec *models.PaymentRecord) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) MarkPaymentProcessed(ctx context.Context, paymentID string, processedAt time.Time, processingError string) error {
	updates := map[string]interface{}{
		"processed_at":     &processedAt,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("payment_id = ?", paymentID).
		Updates(updates).Error
}

func (r *gormRepository) GetPaymentRecord(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) CreateReviewRequest(ctx context.Context, req *models.ManualReviewRequest) error {
	err := r.db.WithContext(ctx).Create(req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSubmission
	}
	return err
}

func (r *gormRepository) GetReviewRequest(ctx context.Context, id string) (*models.ManualReviewRequest, error) {
	var req models.ManualReviewRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *gormRepository) ListReviewRequests(ctx context.Context, status string, limit int) ([]models.ManualReviewRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("submitted_at ASC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.ManualReviewRequest
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) DecideReviewRequest(ctx context.Context, id, status, decidedBy, note string, decidedAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":          status,
		"pending_user_id": nil,
		"decided_at":      &decidedAt,
		"decided_by":      decidedBy,
		"decision_note":   note,
	}
	tx := r.db.WithContext(ctx).Model(&models.ManualReviewRequest{}).
		Where("id = ? AND status = ?", id, models.ReviewStatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateFailedActivation(ctx context.Context, rec *models.FailedActivation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *gormRepository) ListFailedActivations(ctx context.Context, includeResolved bool, limit int) ([]models.FailedActivation, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if !includeResolved {
		q = q.Where("resolved_at IS NULL")
	}
	var out []models.FailedActivation
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) ResolveFailedActivation(ctx context.Context, id uint, resolvedBy string, resolvedAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.FailedActivation{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]interface{}{
			"resolved_at": &resolvedAt,
			"resolved_by": resolvedBy,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
