package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/service"
	"github.com/noah-isme/testseries-api/internal/utils"
)

// ReviewHandler serves the staff review queues together with the grade and approve actions.
type ReviewHandler struct {
	submissions service.SubmissionService
	grading     service.GradingService
	approval    service.ApprovalService
	deposit     service.FileDeposit
	logger      zerolog.Logger
}

// NewReviewHandler constructs the staff review handler.
func NewReviewHandler(submissions service.SubmissionService, grading service.GradingService, approval service.ApprovalService, deposit service.FileDeposit, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		submissions: submissions,
		grading:     grading,
		approval:    approval,
		deposit:     deposit,
		logger:      logger.With().Str("component", "review_handler").Logger(),
	}
}

// RegisterTeacher binds the teacher routes.
func (h *ReviewHandler) RegisterTeacher(router fiber.Router, uploadLimiter ...fiber.Handler) {
	router.Get("/queue", h.queue)
	router.Get("/submissions/:id", h.get)
	router.Post("/submissions/:id/grade", append(uploadLimiter, h.grade)...)
}

// RegisterAdmin binds the admin routes.
func (h *ReviewHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/queue", h.queue)
	router.Get("/submissions/:id", h.get)
	router.Post("/submissions/:id/approve", h.approve)
}

func (h *ReviewHandler) queue(c *fiber.Ctx) error {
	var query dto.SubmissionQueueQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	views, err := h.submissions.Queue(requestContext(c), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, views, "queue retrieved", fiber.Map{"count": len(views)})
}

func (h *ReviewHandler) get(c *fiber.Ctx) error {
	view, err := h.submissions.Get(requestContext(c), actorFromContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", view)
}

func (h *ReviewHandler) grade(c *fiber.Ctx) error {
	var req dto.GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	var file service.FileObject
	if header, err := c.FormFile("file"); err == nil {
		file, err = h.deposit.FromMultipart(header)
		if err != nil {
			return respondError(c, h.logger, err)
		}
	}

	view, err := h.grading.Grade(requestContext(c), actorFromContext(c), c.Params("id"), req, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", view)
}

func (h *ReviewHandler) approve(c *fiber.Ctx) error {
	view, err := h.approval.Approve(requestContext(c), actorFromContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "result published", view)
}
