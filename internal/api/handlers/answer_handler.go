package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/inquiry"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type AnswerHandler struct {
	service *inquiry.Service
}

func NewAnswerHandler(service *inquiry.Service) *AnswerHandler {
	return &AnswerHandler{service: service}
}

func (h *AnswerHandler) HandleEditDraft(c *fiber.Ctx) error {
	var req inquiry.DraftInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.service.EditDraft(c.Context(), c.Params("id"), actorID(c), req)
	if err != nil {
		return h.answerError(c, err, "Failed to edit draft")
	}

	return c.JSON(answerResponse(answer))
}

func (h *AnswerHandler) HandleApprove(c *fiber.Ctx) error {
	var req struct {
		FinalAnswerText string `json:"finalAnswerText"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.service.Approve(c.Context(), c.Params("id"), actorID(c), req.FinalAnswerText)
	if err != nil {
		return h.answerError(c, err, "Failed to approve answer")
	}

	return c.JSON(answerResponse(answer))
}

func (h *AnswerHandler) HandleSend(c *fiber.Ctx) error {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.service.Send(c.Context(), c.Params("id"), actorID(c), req.Channel)
	if err != nil {
		return h.answerError(c, err, "Failed to send answer")
	}

	return c.JSON(answerResponse(answer))
}

func (h *AnswerHandler) answerError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Answer not found",
		})
	}
	logger.Error(msg, zap.Error(err))
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error": err.Error(),
	})
}
