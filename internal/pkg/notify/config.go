package notify

import (
	"strings"

	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
)

const defaultSupportContact = "@PrimePassSupport"

// Config holds delivery targets.
type Config struct {
	TelegramToken  string
	TelegramAPIURL string
	AdminChatIDs   []string
	AdminEmail     string
	SupportContact string
}

// LoadConfig reads TELEGRAM_BOT_TOKEN, TELEGRAM_API_URL, ADMIN_CHAT_ID
// (comma separated), ADMIN_EMAIL and SUPPORT_CONTACT.
func LoadConfig() Config {
	return Config{
		TelegramToken:  env.GetEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL: env.GetEnv("TELEGRAM_API_URL", ""),
		AdminChatIDs:   splitList(env.GetEnv("ADMIN_CHAT_ID", "")),
		AdminEmail:     strings.TrimSpace(env.GetEnv("ADMIN_EMAIL", "")),
		SupportContact: env.GetEnv("SUPPORT_CONTACT", defaultSupportContact),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
