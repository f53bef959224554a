package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAdminApp(t *testing.T, hash string) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/admin", AdminKeyAuthMiddleware(hash), func(c *fiber.Ctx) error {
		return c.SendString(AdminName(c))
	})
	return app
}

func TestAdminKeyAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	app := newAdminApp(t, string(hash))

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"missing key", nil, fiber.StatusUnauthorized, ""},
		{"wrong key", map[string]string{AdminKeyHeader: "nope"}, fiber.StatusUnauthorized, ""},
		{"valid key", map[string]string{AdminKeyHeader: "s3cret"}, fiber.StatusOK, "admin"},
		{"bearer with name", map[string]string{"Authorization": "Bearer s3cret", AdminNameHeader: "alice"}, fiber.StatusOK, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestAdminKeyAuthMiddleware_NoHashLocksAPI(t *testing.T) {
	app := newAdminApp(t, "")
	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set(AdminKeyHeader, "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestServiceKeyAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("bot-key"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		headers  map[string]string
		wantCode int
	}{
		{"missing key", string(hash), nil, fiber.StatusUnauthorized},
		{"wrong key", string(hash), map[string]string{ServiceKeyHeader: "nope"}, fiber.StatusUnauthorized},
		{"admin header is not a service key", string(hash), map[string]string{AdminKeyHeader: "bot-key"}, fiber.StatusUnauthorized},
		{"valid key", string(hash), map[string]string{ServiceKeyHeader: "bot-key"}, fiber.StatusOK},
		{"bearer", string(hash), map[string]string{"Authorization": "Bearer bot-key"}, fiber.StatusOK},
		{"no hash configured", "", map[string]string{ServiceKeyHeader: "bot-key"}, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/users", ServiceKeyAuthMiddleware(tt.hash), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
			req := httptest.NewRequest(fiber.MethodGet, "/users", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestWebhookLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", WebhookLimiter(nil), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < WebhookRateLimit; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/hook", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/hook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
