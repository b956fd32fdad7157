package handlers

import (
	"github.com/ggorockee/partfinder/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the keep-alive/metrics HTTP app
func NewApp(db Pinger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "partfinder",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: "partfinder",
		Skip: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
	}))
	app.Use(middleware.PrometheusMiddleware())

	app.Get("/", Alive)
	app.Get("/healthz", HealthCheck)
	app.Get("/readiness", ReadinessCheck(db))
	app.Get("/metrics", middleware.PrometheusHandler())

	return app
}
