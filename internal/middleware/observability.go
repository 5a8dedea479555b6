package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/observability"
)

const (
	apiPrefix    = "/api/"
	streamPrefix = "/api/v1/events"
	healthRoute  = "/api/v1/health"
)

// Observability counts, times and logs every /api request. Event stream connections stay
// open for minutes, so they are counted but kept out of the latency histogram. Health
// probes log at debug level.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), apiPrefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		method := c.Method()
		status := responseStatus(c, err)
		code := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, code).Inc()
		if !strings.HasPrefix(route, streamPrefix) {
			observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		}
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, code).Inc()
		}

		event := accessLogEvent(logger, route, status)
		if userID, ok := c.Locals(LocalUserID).(string); ok {
			role, _ := c.Locals(LocalUserRole).(string)
			event = event.Str("actor_id", userID).Str("actor_role", role)
		}
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request completed")

		return err
	}
}

func responseStatus(c *fiber.Ctx, err error) int {
	status := c.Response().StatusCode()
	if err == nil {
		return status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	if status < fiber.StatusBadRequest {
		return fiber.StatusInternalServerError
	}
	return status
}

func accessLogEvent(logger zerolog.Logger, route string, status int) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return logger.Error()
	case status >= fiber.StatusBadRequest:
		return logger.Warn()
	case route == healthRoute:
		return logger.Debug()
	default:
		return logger.Info()
	}
}
