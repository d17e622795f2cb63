package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postqueue/internal/api/middleware"
)

func GetUserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(middleware.UserEmailKey).(string)
	return email
}
