package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/testseries-api/internal/utils"
)

// RateLimit caps how often one caller may hit a route group, e.g. answer sheet uploads.
// Callers are keyed by token subject, or by IP before authentication. The window slides
// so a burst at a window edge cannot double the allowance. Requests the handler rejects
// with a 4xx/5xx still count.
func RateLimit(scope string, perWindow int, window time.Duration) fiber.Handler {
	if perWindow <= 0 {
		perWindow = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:               perWindow,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if subject, ok := c.Locals(LocalUserID).(string); ok && subject != "" {
				return scope + ":user:" + subject
			}
			return scope + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests, slow down", fiber.Map{
				"scope":          scope,
				"limit":          perWindow,
				"window_seconds": int(window.Seconds()),
			})
		},
	})
}
