package health

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	report := NewChecker().Add("db", ok).Add("redis", ok).Check(context.Background())
	assert.True(t, report.Healthy)
	assert.Len(t, report.Components, 2)

	report = NewChecker().Add("db", ok).Add("redis", down).Check(context.Background())
	assert.False(t, report.Healthy)
	assert.True(t, report.Components["db"].Healthy)
	assert.Equal(t, "connection refused", report.Components["redis"].Error)
}

func TestHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/up", NewChecker().Add("db", func(context.Context) error { return nil }).Handler())
	app.Get("/down", NewChecker().Add("db", func(context.Context) error { return errors.New("x") }).Handler())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/up", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/down", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
