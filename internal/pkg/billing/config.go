package billing

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
)

// Config holds the billing settings read from the environment.
type Config struct {
	WebhookSecret  string
	WebhookToken   string
	CatalogFile    string
	ExpiryInterval time.Duration
}

// LoadConfig reads DAIMO_WEBHOOK_SECRET, DAIMO_WEBHOOK_TOKEN,
// TIER_CATALOG_FILE and MEMBERSHIP_EXPIRY_INTERVAL.
func LoadConfig() Config {
	cfg := Config{
		WebhookSecret:  env.GetEnv("DAIMO_WEBHOOK_SECRET", ""),
		WebhookToken:   env.GetEnv("DAIMO_WEBHOOK_TOKEN", ""),
		CatalogFile:    env.GetEnv("TIER_CATALOG_FILE", ""),
		ExpiryInterval: env.GetEnvDuration("MEMBERSHIP_EXPIRY_INTERVAL", time.Hour),
	}
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = time.Hour
	}
	if cfg.WebhookSecret == "" && cfg.WebhookToken == "" {
		log.Warn("[Billing] Neither DAIMO_WEBHOOK_SECRET nor DAIMO_WEBHOOK_TOKEN set, all webhooks will be rejected")
	}
	return cfg
}

// Authenticator returns the webhook authenticator for this configuration.
func (c Config) Authenticator() Authenticator {
	return Authenticator{Secret: c.WebhookSecret, Token: c.WebhookToken}
}
