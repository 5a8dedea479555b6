package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/middleware"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// CatalogHandler exposes the test catalog and its admin seeding endpoint.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register binds the catalog read routes.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

// RegisterSeed binds the admin seeding route.
func (h *CatalogHandler) RegisterSeed(router fiber.Router) {
	router.Post("/seed", h.seed)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	var query dto.TestListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	tests, err := h.service.List(requestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, tests, "tests retrieved", fiber.Map{"count": len(tests)})
}

func (h *CatalogHandler) get(c *fiber.Ctx) error {
	test, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "test retrieved", test)
}

func (h *CatalogHandler) seed(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Seed(requestContext(c), actorFromContext(c), c.Get(middleware.HeaderSeedToken), append([]byte(nil), payload...))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "catalog seeded", result)
}
