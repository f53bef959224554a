package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
)

const (
	QuotaSearch = "search"

	DefaultSearchLimit  = 3
	DefaultSearchWindow = 7 * 24 * time.Hour
)

// Config holds the limits of the search quota.
type Config struct {
	SearchLimit  int
	SearchWindow time.Duration
}

// LoadConfig reads SEARCH_WEEKLY_LIMIT and SEARCH_WINDOW.
func LoadConfig() Config {
	cfg := Config{
		SearchLimit:  env.GetEnvInt("SEARCH_WEEKLY_LIMIT", DefaultSearchLimit),
		SearchWindow: env.GetEnvDuration("SEARCH_WINDOW", DefaultSearchWindow),
	}
	if cfg.SearchLimit < 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = DefaultSearchWindow
	}
	return cfg
}

// Store persists the timestamps of consumed actions per key.
type Store interface {
	Load(ctx context.Context, key string) ([]time.Time, error)
	Save(ctx context.Context, key string, entries []time.Time, ttl time.Duration) error
}

// ExemptFunc reports whether a user bypasses quotas.
type ExemptFunc func(ctx context.Context, userID string) (bool, error)

// Usage describes a user's standing in one quota window.
type Usage struct {
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	Exempt    bool       `json:"exempt"`
	ResetsAt  *time.Time `json:"resets_at,omitempty"`
}

// Tracker enforces rolling-window quotas for one named action.
type Tracker struct {
	name   string
	store  Store
	exempt ExemptFunc
	now    func() time.Time
}

// NewTracker creates a tracker for the quota called name. A nil exempt
// function subjects every user to the quota.
func NewTracker(name string, store Store, exempt ExemptFunc) *Tracker {
	return &Tracker{
		name:   name,
		store:  store,
		exempt: exempt,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the tracker clock.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) key(userID string) string {
	return fmt.Sprintf("quota:%s:%s", t.name, userID)
}

// CheckAndConsume records one use and reports whether it was allowed.
// Exempt users are allowed without touching the store. Concurrent calls
// for the same user may briefly over-count.
func (t *Tracker) CheckAndConsume(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	exempt, err := t.isExempt(ctx, userID)
	if err != nil {
		return false, err
	}
	if exempt {
		return true, nil
	}

	now := t.now()
	key := t.key(userID)
	entries, err := t.store.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load quota %s: %w", key, err)
	}
	entries = prune(entries, now, window)

	if len(entries) >= limit {
		log.Debugf("[Quota] %s denied for user %s (%d/%d)", t.name, userID, len(entries), limit)
		DecisionsTotal.WithLabelValues(t.name, "denied").Inc()
		return false, nil
	}

	entries = append(entries, now)
	if err := t.store.Save(ctx, key, entries, window); err != nil {
		return false, fmt.Errorf("save quota %s: %w", key, err)
	}
	DecisionsTotal.WithLabelValues(t.name, "allowed").Inc()
	return true, nil
}

// Usage reports the current window without consuming anything.
func (t *Tracker) Usage(ctx context.Context, userID string, limit int, window time.Duration) (Usage, error) {
	exempt, err := t.isExempt(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	if exempt {
		return Usage{Limit: limit, Remaining: limit, Exempt: true}, nil
	}

	now := t.now()
	entries, err := t.store.Load(ctx, t.key(userID))
	if err != nil {
		return Usage{}, fmt.Errorf("load quota: %w", err)
	}
	entries = prune(entries, now, window)

	u := Usage{Used: len(entries), Limit: limit, Remaining: limit - len(entries)}
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	if len(entries) > 0 {
		resets := entries[0].Add(window)
		u.ResetsAt = &resets
	}
	return u, nil
}

func (t *Tracker) isExempt(ctx context.Context, userID string) (bool, error) {
	if t.exempt == nil {
		return false, nil
	}
	exempt, err := t.exempt(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check quota exemption for %s: %w", userID, err)
	}
	return exempt, nil
}

// prune drops entries at or before now-window.
func prune(entries []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := entries[:0]
	for _, e := range entries {
		if e.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
