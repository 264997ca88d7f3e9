package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a liveness endpoint. Redis is only checked when
// it is configured, since the engine itself needs no backing store.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		redisStatus := "disabled"
		status := http.StatusOK

		if d.Cache != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()

			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"engine": "ok", "redis": redisStatus},
			"kafka":     d.Cfg.KafkaEnabled(),
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
