package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"reqapi/internal/config"
)

// RateLimitMessage is the fixed rejection body for clients over the limit.
const RateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimit bounds requests per client IP over a sliding window. Counters live
// in process memory, so the limit is approximate across restarts and replicas.
func RateLimit(cfg config.RateLimitConfig) fiber.Handler {
	limit := cfg.Max
	if limit <= 0 {
		limit = 100
	}
	window := cfg.Window()
	if window <= 0 {
		window = 15 * time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      RateLimitMessage,
				"request_id": GetRequestID(c),
			})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
