package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/knowledge"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type KnowledgeHandler struct {
	service *knowledge.Service
}

func NewKnowledgeHandler(service *knowledge.Service) *KnowledgeHandler {
	return &KnowledgeHandler{service: service}
}

func (h *KnowledgeHandler) HandleCreate(c *fiber.Ctx) error {
	var req knowledge.SourceInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ks, err := h.service.Create(c.Context(), actorID(c), req)
	if err != nil {
		logger.Error("Failed to create knowledge source", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(sourceResponse(ks))
}

func (h *KnowledgeHandler) HandleList(c *fiber.Ctx) error {
	sources, err := h.service.List(c.Context())
	if err != nil {
		logger.Error("Failed to list knowledge sources", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list knowledge sources",
		})
	}

	items := make([]fiber.Map, 0, len(sources))
	for i := range sources {
		items = append(items, sourceResponse(&sources[i]))
	}

	return c.JSON(fiber.Map{"sources": items})
}

func (h *KnowledgeHandler) HandleGet(c *fiber.Ctx) error {
	ks, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Knowledge source not found",
			})
		}
		logger.Error("Failed to get knowledge source", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get knowledge source",
		})
	}

	return c.JSON(sourceResponse(ks))
}

func (h *KnowledgeHandler) HandleUpdate(c *fiber.Ctx) error {
	var req knowledge.SourceInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ks, err := h.service.Update(c.Context(), actorID(c), c.Params("id"), req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Knowledge source not found",
			})
		}
		logger.Error("Failed to update knowledge source", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(sourceResponse(ks))
}

func (h *KnowledgeHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), actorID(c), c.Params("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Knowledge source not found",
			})
		}
		logger.Error("Failed to delete knowledge source", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete knowledge source",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *KnowledgeHandler) HandleSync(c *fiber.Ctx) error {
	report, err := h.service.Sync(c.Context(), actorID(c))
	if err != nil {
		logger.Error("Knowledge sync failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Knowledge sync failed",
		})
	}

	return c.JSON(report)
}

func sourceResponse(ks *models.KnowledgeSource) fiber.Map {
	return fiber.Map{
		"id":           ks.ID,
		"type":         ks.Type,
		"name":         ks.Name,
		"uri":          ks.URI,
		"content":      ks.Content,
		"contentHash":  ks.ContentHash,
		"lastSyncedAt": ks.LastSyncedAt,
		"createdAt":    ks.CreatedAt,
		"updatedAt":    ks.UpdatedAt,
	}
}
