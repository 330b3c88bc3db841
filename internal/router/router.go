package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classtrack/portal-api/internal/config"
	"github.com/classtrack/portal-api/internal/handler"
	"github.com/classtrack/portal-api/internal/middleware"
	"github.com/classtrack/portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler   *handler.SessionHandler
	StudentHandler   *handler.StudentHandler
	GradingHandler   *handler.GradingHandler
	ViolationHandler *handler.ViolationHandler
	AdminHandler     *handler.AdminHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Scrape endpoint stays outside the portal group so it needs no token.
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Every portal page forwards the caller's bearer token upstream.
	portal := api.Group("/portal", middleware.RequireBearer())

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(portal.Group("/session"))
	}

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(portal.Group("/student"))
	}

	teacher := portal.Group("/teacher")
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(teacher)
	}
	if deps.ViolationHandler != nil {
		deps.ViolationHandler.Register(teacher)
	}

	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(portal.Group("/admin"))
	}
}
