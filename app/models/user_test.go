package models

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestUserIsPaid(t *testing.T) {
	ends := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name     string
		user     User
		paid     bool
		lifetime bool
	}{
		{"free default", User{ID: "1", Tier: TierFree}, false, false},
		{"inactive paid tier", User{ID: "2", Tier: "month-pass"}, false, false},
		{"active with end", User{ID: "3", Tier: "month-pass", SubscriptionActive: true, SubscriptionEndsAt: &ends}, true, false},
		{"active lifetime", User{ID: "4", Tier: "lifetime-pass", SubscriptionActive: true}, true, true},
		{"active but free", User{ID: "5", Tier: TierFree, SubscriptionActive: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.paid, tt.user.IsPaid())
			assert.Equal(t, tt.lifetime, tt.user.IsLifetime())
		})
	}
}

func TestUserValidate(t *testing.T) {
	assert.NoError(t, (&User{ID: "42", Role: ROLE_USER}).Validate())
	assert.Error(t, (&User{}).Validate())
	assert.Error(t, (&User{ID: "42", Role: "owner"}).Validate())
}

func TestManualReviewRequestIsPending(t *testing.T) {
	r := &ManualReviewRequest{Status: ReviewStatusPending}
	assert.True(t, r.IsPending())
	r.Status = ReviewStatusApproved
	assert.False(t, r.IsPending())
}

func TestDateColumnsAreDatetime(t *testing.T) {
	cache := &sync.Map{}
	for _, model := range []any{&User{}, &PaymentRecord{}, &ManualReviewRequest{}, &FailedActivation{}} {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		require.NoError(t, err)
		for _, field := range s.Fields {
			assert.NotEqual(t, "timestamp", strings.ToLower(field.TagSettings["TYPE"]), "%s.%s", s.Name, field.Name)
		}
	}

	users, err := schema.Parse(&User{}, cache, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "datetime", users.LookUpField("subscription_ends_at").TagSettings["TYPE"])

	// TIMESTAMP stops at 2038, membership end dates can be further out
	up, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_create_billing_tables.up.sql"))
	require.NoError(t, err)
	assert.NotContains(t, strings.ToUpper(string(up)), "TIMESTAMP")
	assert.Contains(t, string(up), "subscription_ends_at DATETIME NULL")
}
