package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/app/repository"
	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[string]*models.User{}}
	for _, u := range users {
		if u.Tier == "" {
			u.Tier = models.TierFree
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) MergeSubscription(_ context.Context, id string, update repository.SubscriptionUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	update.Apply(u)
	cp := *u
	return &cp, nil
}

func (m *memUsers) ExpireSubscription(_ context.Context, id string, now time.Time) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}
	update, expired := repository.ExpiryUpdate(u, now)
	if expired {
		update.Apply(u)
	}
	cp := *u
	return &cp, expired, nil
}

func (m *memUsers) list(match func(u *models.User) bool) []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if match(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memUsers) ListExpired(_ context.Context, now time.Time, _ int) ([]models.User, error) {
	return m.list(func(u *models.User) bool {
		return u.SubscriptionActive && u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now)
	}), nil
}

func (m *memUsers) ListExpiring(_ context.Context, now, until time.Time) ([]models.User, error) {
	return m.list(func(u *models.User) bool {
		return u.SubscriptionActive && u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.After(now) && !u.SubscriptionEndsAt.After(until)
	}), nil
}

func (m *memUsers) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memRepo struct {
	mu       sync.Mutex
	payments map[string]*models.PaymentRecord
	reviews  map[string]*models.ManualReviewRequest
	failures []*models.FailedActivation
}

func newMemRepo() *memRepo {
	return &memRepo{
		payments: map[string]*models.PaymentRecord{},
		reviews:  map[string]*models.ManualReviewRequest{},
	}
}

func (r *memRepo) CreatePaymentRecordIfNotExists(_ context.Context, rec *models.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[rec.PaymentID]; ok {
		return false, nil
	}
	cp := *rec
	r.payments[rec.PaymentID] = &cp
	return true, nil
}

func (r *memRepo) MarkPaymentProcessed(_ context.Context, paymentID string, processedAt time.Time, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.payments[paymentID]; ok {
		rec.ProcessedAt = &processedAt
		rec.ProcessingError = processingError
	}
	return nil
}

func (r *memRepo) GetPaymentRecord(_ context.Context, paymentID string) (*models.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.payments[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) CreateReviewRequest(_ context.Context, req *models.ManualReviewRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.PendingUserID != nil && req.PendingUserID != nil && *existing.PendingUserID == *req.PendingUserID {
			return billing.ErrDuplicateSubmission
		}
	}
	cp := *req
	r.reviews[req.ID] = &cp
	return nil
}

func (r *memRepo) GetReviewRequest(_ context.Context, id string) (*models.ManualReviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reviews[id]
	if !ok {
		return nil, billing.ErrReviewNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRepo) ListReviewRequests(_ context.Context, status string, _ int) ([]models.ManualReviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ManualReviewRequest
	for _, req := range r.reviews {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (r *memRepo) DecideReviewRequest(_ context.Context, id, status, decidedBy, note string, decidedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reviews[id]
	if !ok || req.Status != models.ReviewStatusPending {
		return false, nil
	}
	req.Status = status
	req.PendingUserID = nil
	req.DecidedAt = &decidedAt
	req.DecidedBy = decidedBy
	req.DecisionNote = note
	return true, nil
}

func (r *memRepo) CreateFailedActivation(_ context.Context, rec *models.FailedActivation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	cp.ID = uint(len(r.failures) + 1)
	r.failures = append(r.failures, &cp)
	return nil
}

func (r *memRepo) ListFailedActivations(_ context.Context, includeResolved bool, _ int) ([]models.FailedActivation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FailedActivation
	for _, f := range r.failures {
		if includeResolved || f.ResolvedAt == nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *memRepo) ResolveFailedActivation(_ context.Context, id uint, resolvedBy string, resolvedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.failures {
		if f.ID == id && f.ResolvedAt == nil {
			f.ResolvedAt = &resolvedAt
			f.ResolvedBy = resolvedBy
			return true, nil
		}
	}
	return false, nil
}
