package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// BookingHandler exposes mentorship booking requests for every role.
type BookingHandler struct {
	service service.BookingService
	logger  zerolog.Logger
}

// NewBookingHandler constructs a booking handler.
func NewBookingHandler(service service.BookingService, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger.With().Str("component", "booking_handler").Logger(),
	}
}

// RegisterStudent binds the student booking routes.
func (h *BookingHandler) RegisterStudent(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.listMine)
}

// RegisterStaff binds the queue and confirm routes shared by teachers and admins.
func (h *BookingHandler) RegisterStaff(router fiber.Router) {
	router.Get("/", h.queue)
	router.Post("/:id/confirm", h.confirm)
}

func (h *BookingHandler) create(c *fiber.Ctx) error {
	var req dto.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	booking, err := h.service.Create(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.Created(c, "booking requested", booking)
}

func (h *BookingHandler) listMine(c *fiber.Ctx) error {
	bookings, err := h.service.ListMine(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, bookings, "bookings retrieved", fiber.Map{"count": len(bookings)})
}

func (h *BookingHandler) queue(c *fiber.Ctx) error {
	var query dto.BookingQueueQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	bookings, err := h.service.Queue(requestContext(c), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, bookings, "bookings retrieved", fiber.Map{"count": len(bookings)})
}

func (h *BookingHandler) confirm(c *fiber.Ctx) error {
	booking, err := h.service.Confirm(requestContext(c), actorFromContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "booking confirmed", booking)
}
