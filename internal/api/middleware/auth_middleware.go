package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/transfer"
	"github.com/maheshrc27/postqueue/pkg/utils"
)

const UserEmailKey = "user_email"

type AuthMiddleware struct {
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// AuthMiddleware accepts the session cookie or an Authorization bearer token
// and stores the caller's email in the request locals.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		fromCookie := tokenString != ""
		if !fromCookie {
			auth := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(auth, "Bearer ") {
				tokenString = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing session",
			})
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString, transfer.PurposeSession)
		if err != nil {
			if fromCookie {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
			}

			slog.Info("token validation failed", slog.String("error", err.Error()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(UserEmailKey, claims.Email)
		return c.Next()
	}
}
