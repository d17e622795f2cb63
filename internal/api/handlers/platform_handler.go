package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	fb  service.FacebookService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, fb service.FacebookService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		fb:  fb,
		cfg: cfg,
	}
}

// platformParam maps the lower case route segment onto a platform.
func platformParam(c *fiber.Ctx) models.Platform {
	switch c.Params("platform") {
	case "facebook":
		return models.PlatformFacebook
	case "instagram":
		return models.PlatformInstagram
	case "tiktok":
		return models.PlatformTikTok
	}
	return ""
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL, err := h.ps.GetAuthURL(c.Context(), platformParam(c), GetUserEmail(c))
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, service.ErrConnectUnavailable) {
			status = fiber.StatusNotImplemented
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	if platformParam(c) != models.PlatformFacebook {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unsupported platform",
		})
	}

	if reason := c.Query("error_reason"); reason != "" {
		return c.Redirect(fmt.Sprintf("%s/dashboard/accounts?error=%s", h.cfg.FrontendURL, reason), fiber.StatusTemporaryRedirect)
	}

	result, err := h.fb.Callback(c.Context(), c.Query("code"), c.Query("state"), c.IP())
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect account",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts?connected=%d", h.cfg.FrontendURL, result.Pages)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.ps.List(c.Context(), GetUserEmail(c))
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}
