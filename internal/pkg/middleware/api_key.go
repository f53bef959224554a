package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminKeyHeader   = "X-Admin-Key"
	AdminNameHeader  = "X-Admin-Name"
	ServiceKeyHeader = "X-Service-Key"

	// KeyAdminName holds the acting administrator in fiber locals.
	KeyAdminName = "ADMIN_NAME"
)

// AdminKeyAuthMiddleware authenticates admin requests by comparing the
// X-Admin-Key header against a bcrypt hash. An empty hash locks the admin
// API entirely.
func AdminKeyAuthMiddleware(keyHash string) fiber.Handler {
	hash := []byte(strings.TrimSpace(keyHash))
	if len(hash) == 0 {
		log.Warn("[Admin] ADMIN_API_KEY_HASH not set, admin API disabled")
	}

	return func(c *fiber.Ctx) error {
		apiKey := extractKey(c, AdminKeyHeader)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin key"})
		}
		if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(apiKey)) != nil {
			log.Warnf("[Admin] Rejected admin request from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin key"})
		}

		name := strings.TrimSpace(c.Get(AdminNameHeader))
		if name == "" {
			name = "admin"
		}
		c.Locals(KeyAdminName, name)
		return c.Next()
	}
}

// AdminName returns the administrator set by AdminKeyAuthMiddleware.
func AdminName(c *fiber.Ctx) string {
	if name, ok := c.Locals(KeyAdminName).(string); ok && name != "" {
		return name
	}
	return "admin"
}

// ServiceKeyAuthMiddleware guards the user-facing API called by the bot.
// The X-Service-Key header (or a bearer token) must match the bcrypt hash.
// An empty hash locks those routes.
func ServiceKeyAuthMiddleware(keyHash string) fiber.Handler {
	hash := []byte(strings.TrimSpace(keyHash))
	if len(hash) == 0 {
		log.Warn("[Service] BOT_API_KEY_HASH not set, user API disabled")
	}

	return func(c *fiber.Ctx) error {
		apiKey := extractKey(c, ServiceKeyHeader)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing service key"})
		}
		if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(apiKey)) != nil {
			log.Warnf("[Service] Rejected request to %s from %s", c.Path(), c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service key"})
		}
		return c.Next()
	}
}

func extractKey(c *fiber.Ctx, header string) string {
	apiKey := strings.TrimSpace(c.Get(header))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
