package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/service"
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	authURL, err := h.s.LoginURL()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Login is not configured",
		})
	}
	return c.Redirect(authURL)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	token, _, err := h.s.LoginCallback(c.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(service.SessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
