package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// HeaderSeedToken authorises catalog seeding on top of an admin token.
const HeaderSeedToken = "X-Seed-Token"

// Config customises the shared middleware chain.
type Config struct {
	Logger       *zerolog.Logger
	AllowOrigins string
}

// Register installs, in order: panic recovery, correlation ids, access logging with
// metrics, and CORS for browser clients of the review dashboard.
func Register(app *fiber.App, cfg Config) {
	accessLogger := zerolog.Nop()
	if cfg.Logger != nil {
		accessLogger = cfg.Logger.With().Str("component", "http").Logger()
	}
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(
		recover.New(recover.Config{EnableStackTrace: cfg.Logger != nil}),
		CorrelationID(),
		Observability(accessLogger),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + HeaderCorrelationID + ", " + HeaderSeedToken,
			AllowMethods: "GET,POST,PATCH,OPTIONS",
			// SSE clients read the correlation id; the limiter sets Retry-After.
			ExposeHeaders: HeaderCorrelationID + ", " + fiber.HeaderRetryAfter + ", X-Cache",
		}),
	)
}
