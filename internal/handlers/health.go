package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AliveText body of the keep-alive endpoint
const AliveText = "Бот работает 24/7!"

// Pinger checks a backing dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Alive static keep-alive answer for uptime probes
func Alive(c *fiber.Ctx) error {
	return c.SendString(AliveText)
}

// HealthCheck liveness probe
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}

// ReadinessCheck reports ready once the database answers a ping
func ReadinessCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "not ready",
				"database": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":   "ready",
			"database": "ok",
		})
	}
}
