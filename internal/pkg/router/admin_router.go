package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PrimePass/app/controllers"
	"github.com/ManuelReschke/PrimePass/internal/pkg/middleware"
)

type AdminRouter struct {
	ctl  *controllers.Controller
	opts Options
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	adminGroup := app.Group("/api/v1/admin", middleware.AdminKeyAuthMiddleware(h.opts.AdminKeyHash))

	// Manual reviews
	adminGroup.Get("/reviews", h.ctl.HandleAdminListReviews)
	adminGroup.Get("/reviews/:id", h.ctl.HandleAdminGetReview)
	adminGroup.Get("/reviews/:id/proof", h.ctl.HandleAdminGetProof)
	adminGroup.Post("/reviews/:id/decision", h.ctl.HandleAdminDecideReview)

	// Failed activations
	adminGroup.Get("/failed-activations", h.ctl.HandleAdminListFailedActivations)
	adminGroup.Post("/failed-activations/:id/resolve", h.ctl.HandleAdminResolveFailedActivation)

	// Memberships
	adminGroup.Get("/memberships/expiring", h.ctl.HandleAdminExpiringMemberships)
	adminGroup.Post("/memberships/expire", h.ctl.HandleAdminExpireMemberships)
}

func NewAdminRouter(ctl *controllers.Controller, opts Options) *AdminRouter {
	return &AdminRouter{ctl: ctl, opts: opts}
}
