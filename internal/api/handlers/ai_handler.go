package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/inquiry"
	"github.com/inquiry-triage/backend/internal/pipeline"
	"github.com/inquiry-triage/backend/pkg/logger"
)

// AIHandler exposes the pipeline operations directly, for the intake form
// and the staff console. Self-help goes through the inquiry service so it
// hits the cache.
type AIHandler struct {
	engine    pipeline.Engine
	inquiries *inquiry.Service
}

func NewAIHandler(engine pipeline.Engine, inquiries *inquiry.Service) *AIHandler {
	return &AIHandler{
		engine:    engine,
		inquiries: inquiries,
	}
}

type textRequest struct {
	Text string `json:"text"`
}

func parseTextRequest(c *fiber.Ctx) (string, error) {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return "", c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Text is required",
		})
	}
	return req.Text, nil
}

func (h *AIHandler) HandleSummarize(c *fiber.Ctx) error {
	text, err := parseTextRequest(c)
	if text == "" {
		return err
	}

	result, err := h.engine.SummarizeAndRoute(c.Context(), text)
	if err != nil {
		logger.Error("Failed to summarize inquiry", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to summarize inquiry",
		})
	}

	return c.JSON(result)
}

func (h *AIHandler) HandleSelfHelp(c *fiber.Ctx) error {
	text, err := parseTextRequest(c)
	if text == "" {
		return err
	}

	result, err := h.inquiries.SelfHelp(c.Context(), text)
	if err != nil {
		logger.Error("Failed to recommend self-help", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to recommend self-help",
		})
	}

	return c.JSON(result)
}

func (h *AIHandler) HandleFollowups(c *fiber.Ctx) error {
	text, err := parseTextRequest(c)
	if text == "" {
		return err
	}

	questions, err := h.engine.GenerateFollowupQuestions(c.Context(), text)
	if err != nil {
		logger.Error("Failed to generate follow-up questions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate follow-up questions",
		})
	}

	return c.JSON(fiber.Map{"questions": questions})
}

func (h *AIHandler) HandleSimilar(c *fiber.Ctx) error {
	text, err := parseTextRequest(c)
	if text == "" {
		return err
	}

	similar, err := h.engine.FindSimilarInquiries(c.Context(), text)
	if err != nil {
		logger.Error("Failed to find similar inquiries", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to find similar inquiries",
		})
	}

	return c.JSON(fiber.Map{"similar": similar})
}

func (h *AIHandler) HandleSearch(c *fiber.Ctx) error {
	text, err := parseTextRequest(c)
	if text == "" {
		return err
	}

	sources, err := h.engine.SearchKnowledge(c.Context(), text)
	if err != nil {
		logger.Error("Failed to search knowledge", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search knowledge",
		})
	}

	return c.JSON(fiber.Map{"sources": sources})
}
