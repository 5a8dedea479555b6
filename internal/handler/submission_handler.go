package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// SubmissionHandler exposes the student side of answer sheet submissions.
type SubmissionHandler struct {
	submissions service.SubmissionService
	deposit     service.FileDeposit
	logger      zerolog.Logger
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(submissions service.SubmissionService, deposit service.FileDeposit, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		deposit:     deposit,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the student submission routes. The upload route takes an optional
// limiter so answer sheet uploads can be throttled per student.
func (h *SubmissionHandler) Register(router fiber.Router, uploadLimiter ...fiber.Handler) {
	create := append(uploadLimiter, h.create)
	router.Post("/", create...)
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var req dto.SubmissionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.logger, service.ErrFileRequired)
	}

	file, err := h.deposit.FromMultipart(header)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.submissions.Create(requestContext(c), actorFromContext(c), req, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.Created(c, "submission received", view)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	views, err := h.submissions.ListMine(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, views, "submissions retrieved", fiber.Map{"count": len(views)})
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	view, err := h.submissions.Get(requestContext(c), actorFromContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", view)
}
