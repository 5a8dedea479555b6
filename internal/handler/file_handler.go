package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/internal/service"
)

// FileHandler streams deposited files back to callers allowed to read them.
type FileHandler struct {
	deposit service.FileDeposit
	logger  zerolog.Logger
}

// NewFileHandler constructs a file download handler.
func NewFileHandler(deposit service.FileDeposit, logger zerolog.Logger) *FileHandler {
	return &FileHandler{
		deposit: deposit,
		logger:  logger.With().Str("component", "file_handler").Logger(),
	}
}

// Register wires download routes.
func (h *FileHandler) Register(router fiber.Router) {
	router.Get("/:key", h.download)
}

func (h *FileHandler) download(c *fiber.Ctx) error {
	reader, record, err := h.deposit.Open(requestContext(c), actorFromContext(c), c.Params("key"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, record.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%s", strconv.Quote(record.FileName)))
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	c.Set("X-Checksum-SHA256", record.Checksum)

	return c.SendStream(reader, int(record.SizeBytes))
}
