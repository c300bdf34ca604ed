package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/importer"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type ImportHandler struct {
	service *importer.Service
	stream  *TriageStream
}

func NewImportHandler(service *importer.Service, stream *TriageStream) *ImportHandler {
	return &ImportHandler{
		service: service,
		stream:  stream,
	}
}

// HandleEmail accepts a raw RFC 822 message as the request body.
func (h *ImportHandler) HandleEmail(c *fiber.Ctx) error {
	raw := string(c.Body())
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email body is required",
		})
	}

	inq, err := h.service.ImportEmail(c.Context(), raw)
	if err != nil {
		logger.Error("Failed to import email", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.stream.NotifyInquiry(inq)

	return c.Status(fiber.StatusCreated).JSON(inquiryResponse(inq))
}

func (h *ImportHandler) HandlePhone(c *fiber.Ctx) error {
	var memo importer.PhoneMemo
	if err := c.BodyParser(&memo); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inq, err := h.service.ImportPhone(c.Context(), memo)
	if err != nil {
		logger.Error("Failed to import phone memo", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.stream.NotifyInquiry(inq)

	return c.Status(fiber.StatusCreated).JSON(inquiryResponse(inq))
}
