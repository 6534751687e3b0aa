package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"service": "notify-engine",
		})
	}
}

// ReadyzHandler pings Postgres and Redis. The API can serve traffic only with
// both up: attempts live in Postgres, quota counters and rate limits in Redis.
func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		pgCheck := runCheck(func() error { return sqlDB.PingContext(ctx) })
		redisCheck := runCheck(func() error { return rdb.Ping(ctx).Err() })

		status := "ready"
		statusCode := fiber.StatusOK
		if pgCheck["status"] != "ok" || redisCheck["status"] != "ok" {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"postgres": pgCheck,
				"redis":    redisCheck,
			},
		})
	}
}

func runCheck(ping func() error) fiber.Map {
	start := time.Now()
	err := ping()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":    "down",
			"error":     err.Error(),
			"latencyMs": latency,
		}
	}
	return fiber.Map{
		"status":    "ok",
		"latencyMs": latency,
	}
}
