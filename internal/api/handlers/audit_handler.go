package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/storage/sqlite"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type AuditHandler struct {
	db *sqlite.Client
}

func NewAuditHandler(db *sqlite.Client) *AuditHandler {
	return &AuditHandler{db: db}
}

func (h *AuditHandler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 200)

	entries, err := h.db.ListAuditLogs(limit)
	if err != nil {
		logger.Error("Failed to list audit logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list audit logs",
		})
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		items = append(items, fiber.Map{
			"id":         e.ID,
			"actorId":    e.ActorID,
			"action":     e.Action,
			"targetType": e.TargetType,
			"targetId":   e.TargetID,
			"meta":       e.Meta,
			"createdAt":  e.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"entries": items})
}
