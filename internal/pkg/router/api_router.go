package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PrimePass/app/controllers"
	"github.com/ManuelReschke/PrimePass/internal/pkg/middleware"
)

type ApiRouter struct {
	ctl  *controllers.Controller
	opts Options
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Post("/payments/daimo/webhook", middleware.WebhookLimiter(h.opts.LimiterStorage), h.ctl.HandleDaimoWebhook)

	// per route: a keyed group would also catch the webhook and admin paths
	serviceKey := middleware.ServiceKeyAuthMiddleware(h.opts.ServiceKeyHash)
	v1.Get("/plans", serviceKey, h.ctl.HandleListPlans)
	v1.Post("/reviews", serviceKey, h.ctl.HandleSubmitReview)
	v1.Get("/users/:userId/subscription", serviceKey, h.ctl.HandleGetSubscription)
	v1.Get("/users/:userId/quota/search", serviceKey, h.ctl.HandleGetSearchQuota)
	v1.Post("/users/:userId/quota/search", serviceKey, h.ctl.HandleConsumeSearch)
}

func NewApiRouter(ctl *controllers.Controller, opts Options) *ApiRouter {
	return &ApiRouter{ctl: ctl, opts: opts}
}
