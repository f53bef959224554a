package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PrimePass/app/controllers"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Options carries what the routers need besides the controller.
type Options struct {
	// AdminKeyHash is the bcrypt hash of the admin API key.
	AdminKeyHash string
	// ServiceKeyHash is the bcrypt hash of the key the bot uses for the
	// user-facing routes.
	ServiceKeyHash string
	// LimiterStorage backs the webhook rate limiter; nil keeps it in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, ctl *controllers.Controller, opts Options) {
	setup(app, NewApiRouter(ctl, opts), NewAdminRouter(ctl, opts))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
