package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/middleware"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		actor.ID = v
	}
	if v, ok := c.Locals(middleware.LocalUserName).(string); ok {
		actor.Name = v
	}
	if v, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		actor.Role = v
	}
	return actor
}

// requestContext carries the correlation id set by middleware.CorrelationID.
func requestContext(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if correlation := middleware.GetCorrelationID(c); correlation != "" {
		logger = base.With().Str("correlation_id", correlation).Logger()
	}
	return &logger
}

// respondError maps a service error kind onto the HTTP envelope. Forbidden responses never
// say whether the record exists.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	log := requestLogger(logger, c)
	actor := actorFromContext(c)

	switch {
	case errors.Is(err, service.ErrValidation):
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid request", validationDetails(fieldErrors))
		}
		return utils.SendError(c, fiber.StatusBadRequest, publicMessage(err, service.ErrValidation))
	case errors.Is(err, service.ErrConflict):
		log.Info().Err(err).Str("actor_id", actor.ID).Msg("request lost a state transition race")
		return utils.SendError(c, fiber.StatusConflict, publicMessage(err, service.ErrConflict))
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, publicMessage(err, service.ErrNotFound))
	case errors.Is(err, service.ErrForbidden):
		log.Warn().Err(err).Str("actor_id", actor.ID).Str("role", actor.Role).Str("path", c.Path()).Msg("access denied")
		return utils.SendError(c, fiber.StatusForbidden, service.ErrForbidden.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		log.Error().Err(err).Msg("storage unavailable")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "storage temporarily unavailable, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("request cancelled")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "request cancelled")
	default:
		log.Error().Err(err).Msg("unhandled error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func publicMessage(err, kind error) string {
	message := err.Error()
	message = strings.TrimSuffix(message, ": "+kind.Error())
	message = strings.TrimPrefix(message, kind.Error()+": ")
	if message == "" {
		return kind.Error()
	}
	return message
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}
