package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// AdminActivityHandler serves the audit trail to admins.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches the listing and the per-record trail.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:entity_type/:entity_id", h.trail)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	var req dto.ActivityListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity query")
	}

	page, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, page.Items, "activity", page.Pagination)
}

func (h *AdminActivityHandler) trail(c *fiber.Ctx) error {
	entries, err := h.service.Trail(requestContext(c), actorFromContext(c), c.Params("entity_type"), c.Params("entity_id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, entries, "activity trail", fiber.Map{"count": len(entries)})
}
