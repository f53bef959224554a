package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	WebhookRateLimit  = 100
	WebhookRateWindow = 15 * time.Minute
)

// WebhookLimiter limits webhook calls per client IP. storage may be nil to
// keep counters in memory.
func WebhookLimiter(storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        WebhookRateLimit,
		Expiration: WebhookRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "webhook:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests", "message": "Too many webhook requests"})
		},
		Storage: storage,
	})
}
