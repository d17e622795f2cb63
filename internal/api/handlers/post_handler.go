package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var ps transfer.PostSubmission
	if err := c.BodyParser(&ps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	postID, err := h.s.Submit(c.Context(), GetUserEmail(c), &ps)
	switch {
	case errors.Is(err, service.ErrInvalidPost):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to queue post",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      postID,
		"message": "Post queued successfully",
	})
}

// ListPosts is the queue monitor: the caller's latest posts, newest first.
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.ListRecent(c.Context(), GetUserEmail(c), c.QueryInt("limit", 10))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}
