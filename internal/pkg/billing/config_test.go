package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DAIMO_WEBHOOK_SECRET", "whsec")
	t.Setenv("DAIMO_WEBHOOK_TOKEN", "")
	t.Setenv("MEMBERSHIP_EXPIRY_INTERVAL", "15m")

	cfg := LoadConfig()
	assert.Equal(t, "whsec", cfg.WebhookSecret)
	assert.Equal(t, 15*time.Minute, cfg.ExpiryInterval)
	assert.Equal(t, Authenticator{Secret: "whsec"}, cfg.Authenticator())

	t.Setenv("MEMBERSHIP_EXPIRY_INTERVAL", "-1s")
	assert.Equal(t, time.Hour, LoadConfig().ExpiryInterval)
}
