package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postqueue/internal/audit"
	"github.com/maheshrc27/postqueue/internal/models"
)

type AuditHandler struct {
	al audit.Logger
}

func NewAuditHandler(al audit.Logger) *AuditHandler {
	return &AuditHandler{al: al}
}

func (h *AuditHandler) TokenHistory(c *fiber.Ctx) error {
	logs, err := h.al.TokenExchangeHistory(c.Context(), GetUserEmail(c), models.Platform(c.Query("platform")), c.QueryInt("limit", 50))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load token history",
		})
	}
	if logs == nil {
		logs = []*models.TokenExchangeLog{}
	}
	return c.JSON(logs)
}

func (h *AuditHandler) FailedPublications(c *fiber.Ctx) error {
	logs, err := h.al.FailedPublications(c.Context(), GetUserEmail(c), c.QueryInt("limit", 20))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load failed publications",
		})
	}
	if logs == nil {
		logs = []*models.PublishLog{}
	}
	return c.JSON(logs)
}

func (h *AuditHandler) Report(c *fiber.Ctx) error {
	report, err := h.al.Report(c.Context(), c.QueryInt("days", 7))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to build report",
		})
	}
	return c.JSON(report)
}
