package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/internal/transfer"
)

type ContentHandler struct {
	s service.ContentService
}

func NewContentHandler(service service.ContentService) *ContentHandler {
	return &ContentHandler{s: service}
}

func (h *ContentHandler) GenerateText(c *fiber.Ctx) error {
	var req transfer.TextGeneration
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	text, err := h.s.GenerateText(c.Context(), req.Prompt)
	if err != nil {
		return contentError(c, err)
	}

	return c.JSON(fiber.Map{"text": text})
}

func (h *ContentHandler) GenerateImage(c *fiber.Ctx) error {
	var req transfer.ImageGeneration
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	img, err := h.s.GenerateImage(c.Context(), req.Prompt, req.Store)
	if err != nil {
		return contentError(c, err)
	}

	return c.JSON(img)
}

func contentError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadGateway
	switch {
	case errors.Is(err, service.ErrEmptyPrompt):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, service.ErrStorageDisabled):
		status = fiber.StatusServiceUnavailable
	default:
		slog.Error(err.Error())
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
