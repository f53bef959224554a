package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PrimePass/app/models"
	"github.com/ManuelReschke/PrimePass/app/repository"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type memUsers struct {
	mu       sync.Mutex
	users    map[string]*models.User
	mergeErr error
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
	if _, ok := m.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
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
	if m.mergeErr != nil {
		return nil, m.mergeErr
	}
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

func (m *memUsers) ListExpired(_ context.Context, now time.Time, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.SubscriptionActive && u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) ListExpiring(_ context.Context, now, until time.Time) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.SubscriptionActive && u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.After(now) && !u.SubscriptionEndsAt.After(until) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memRepo struct {
	mu         sync.Mutex
	payments   map[string]*models.PaymentRecord
	reviews    map[string]*models.ManualReviewRequest
	failures   []*models.FailedActivation
	claimErr   error
	failureErr error
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
	if r.claimErr != nil {
		return false, r.claimErr
	}
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
	rec, ok := r.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.ProcessedAt = &processedAt
	rec.ProcessingError = processingError
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
			return ErrDuplicateSubmission
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
		return nil, ErrReviewNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRepo) ListReviewRequests(_ context.Context, status string, limit int) ([]models.ManualReviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ManualReviewRequest
	for _, req := range r.reviews {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
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
	if r.failureErr != nil {
		return r.failureErr
	}
	cp := *rec
	cp.ID = uint(len(r.failures) + 1)
	r.failures = append(r.failures, &cp)
	return nil
}

func (r *memRepo) ListFailedActivations(_ context.Context, includeResolved bool, limit int) ([]models.FailedActivation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FailedActivation
	for _, f := range r.failures {
		if includeResolved || f.ResolvedAt == nil {
			out = append(out, *f)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
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

func (r *memRepo) failureReasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, f.Reason)
	}
	return out
}

type sentEvent struct {
	UserID string
	Admin  bool
	Event  Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID string, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Event: event})
	return n.err
}

func (n *recordingNotifier) NotifyAdmin(_ context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{Admin: true, Event: event})
	return n.err
}

func (n *recordingNotifier) kinds(admin bool) []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []EventKind
	for _, e := range n.events {
		if e.Admin == admin {
			out = append(out, e.Event.Kind)
		}
	}
	return out
}
