package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// AdminAnalyticsHandler serves the review workload summary. `?fresh=true` rebuilds it
// instead of reading the cached copy; X-Cache tells which one the caller got.
type AdminAnalyticsHandler struct {
	analytics service.AdminAnalyticsService
	logger    zerolog.Logger
}

func NewAdminAnalyticsHandler(analytics service.AdminAnalyticsService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		analytics: analytics,
		logger:    logger.With().Str("component", "admin_analytics_handler").Logger(),
	}
}

func (h *AdminAnalyticsHandler) Register(router fiber.Router) {
	router.Get("/", h.summary)
}

func (h *AdminAnalyticsHandler) summary(c *fiber.Ctx) error {
	opts := service.AnalyticsOptions{Fresh: c.QueryBool("fresh", false)}

	summary, err := h.analytics.GetSummary(requestContext(c), actorFromContext(c), opts)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	cache := "MISS"
	if summary.CacheHit {
		cache = "HIT"
	}
	c.Set("X-Cache", cache)
	return utils.OK(c, summary, "review analytics", nil)
}
