package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	publicContent = "CryptoScore Backend is running! Public Content."
	healthMessage = "Backend is healthy and ready to serve requests!"
)

// RegisterHealthRoutes adds the readiness endpoint covering Postgres and Redis.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB == nil {
			dbStatus = "disabled"
		} else if err := d.DB.Ping(ctx); err != nil {
			dbStatus = err.Error()
		}
		if d.Cache == nil {
			redisStatus = "disabled"
		} else if err := d.Cache.Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
		}

		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// RegisterDiagnosticRoutes adds the unauthenticated /test endpoints.
func RegisterDiagnosticRoutes(app *fiber.App) {
	group := app.Group("/test")
	group.Get("/all", func(c *fiber.Ctx) error {
		return c.SendString(publicContent)
	})
	group.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString(healthMessage)
	})
}

func healthy(status string) bool {
	return status == "ok" || status == "disabled"
}
