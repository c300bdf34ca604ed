package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/inquiry"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type InquiryHandler struct {
	service *inquiry.Service
	stream  *TriageStream
}

func NewInquiryHandler(service *inquiry.Service, stream *TriageStream) *InquiryHandler {
	return &InquiryHandler{
		service: service,
		stream:  stream,
	}
}

func actorID(c *fiber.Ctx) string {
	if id := c.Get("X-User-ID"); id != "" {
		return id
	}
	return "staff"
}

func (h *InquiryHandler) HandleSubmit(c *fiber.Ctx) error {
	var req inquiry.SubmitInput
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inq, err := h.service.Submit(c.Context(), req)
	if err != nil {
		logger.Error("Failed to submit inquiry", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.stream.NotifyInquiry(inq)

	return c.Status(fiber.StatusCreated).JSON(inquiryResponse(inq))
}

func (h *InquiryHandler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	inquiries, err := h.service.List(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list inquiries", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list inquiries",
		})
	}

	items := make([]fiber.Map, 0, len(inquiries))
	for i := range inquiries {
		items = append(items, inquiryResponse(&inquiries[i]))
	}

	return c.JSON(fiber.Map{"inquiries": items})
}

func (h *InquiryHandler) HandleGet(c *fiber.Ctx) error {
	inq, err := h.service.Get(c.Context(), c.Params("id"), actorID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inquiry not found",
			})
		}
		logger.Error("Failed to get inquiry", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get inquiry",
		})
	}

	return c.JSON(inquiryResponse(inq))
}

func (h *InquiryHandler) HandleUpdate(c *fiber.Ctx) error {
	var req inquiry.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	inq, err := h.service.Update(c.Context(), c.Params("id"), actorID(c), req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inquiry not found",
			})
		}
		logger.Error("Failed to update inquiry", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(inquiryResponse(inq))
}

func (h *InquiryHandler) HandleGenerateAnswer(c *fiber.Ctx) error {
	answer, pkg, err := h.service.GenerateAnswer(c.Context(), c.Params("id"), actorID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Inquiry not found",
			})
		}
		logger.Error("Failed to generate answer", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate answer",
		})
	}

	return c.JSON(fiber.Map{
		"answerId":         answer.ID,
		"inquiryId":        answer.InquiryID,
		"policy":           pkg.Policy,
		"answerText":       pkg.AnswerText,
		"supplementalText": pkg.SupplementalText,
		"citations":        pkg.Citations,
	})
}

func (h *InquiryHandler) HandleListAnswers(c *fiber.Ctx) error {
	answers, err := h.service.ListAnswers(c.Context(), c.Params("id"))
	if err != nil {
		logger.Error("Failed to list answers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list answers",
		})
	}

	items := make([]fiber.Map, 0, len(answers))
	for i := range answers {
		items = append(items, answerResponse(&answers[i]))
	}

	return c.JSON(fiber.Map{"answers": items})
}

func inquiryResponse(inq *models.Inquiry) fiber.Map {
	return fiber.Map{
		"id":             inq.ID,
		"channel":        inq.Channel,
		"rawText":        inq.RawText,
		"normalizedText": inq.NormalizedText,
		"locale":         inq.Locale,
		"aiSummary":      inq.AISummary,
		"urgency":        inq.Urgency,
		"importance":     inq.Importance,
		"deptSuggested":  inq.DeptSuggested,
		"deptActual":     inq.DeptActual,
		"status":         inq.Status,
		"tags":           inq.Tags,
		"followupQA":     inq.FollowupQA,
		"needsReply":     inq.NeedsReply,
		"contactName":    inq.ContactName,
		"contactEmail":   inq.ContactEmail,
		"contactPhone":   inq.ContactPhone,
		"addressText":    inq.AddressText,
		"lat":            inq.Lat,
		"lng":            inq.Lng,
		"isRead":         inq.IsRead,
		"createdAt":      inq.CreatedAt,
		"updatedAt":      inq.UpdatedAt,
	}
}

func answerResponse(a *models.Answer) fiber.Map {
	return fiber.Map{
		"id":                    a.ID,
		"inquiryId":             a.InquiryID,
		"draftPolicy":           a.DraftPolicyJSON,
		"draftAnswerText":       a.DraftAnswerText,
		"draftSupplementalText": a.DraftSupplementalText,
		"sources":               a.SourcesJSON,
		"finalAnswerText":       a.FinalAnswerText,
		"approvedBy":            a.ApprovedBy,
		"approvedAt":            a.ApprovedAt,
		"sentChannel":           a.SentChannel,
		"sentAt":                a.SentAt,
		"createdAt":             a.CreatedAt,
		"updatedAt":             a.UpdatedAt,
	}
}
