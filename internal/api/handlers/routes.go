package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/api/middleware"
)

type Deps struct {
	Config   config.Config
	Auth     *middleware.AuthMiddleware
	Login    *AuthHandler
	Platform *PlatformHandler
	Post     *PostHandler
	Audit    *AuditHandler
	Content  *ContentHandler
	Health   *HealthHandler
}

func Register(app *fiber.App, d Deps) {
	app.Get("/healthz", d.Health.Healthz)

	app.Get("/login", d.Login.Login)
	app.Get("/login/callback", d.Login.LoginCallbackHandler)

	app.Get("/auth/:platform/callback", d.Platform.CallbackHandler)
	app.Get("/auth/:platform", d.Auth.AuthMiddleware(), d.Platform.AddSocialAccount)

	api := app.Group("/api")
	api.Use(d.Auth.AuthMiddleware())

	api.Post("/posts", d.Post.CreatePost)
	api.Get("/posts", d.Post.ListPosts)

	// social accounts api routes
	api.Get("/accounts", d.Platform.ListSocialAccounts)

	api.Get("/audit/tokens", d.Audit.TokenHistory)
	api.Get("/audit/failed", d.Audit.FailedPublications)
	api.Get("/audit/report", d.Audit.Report)

	api.Post("/content/text", d.Content.GenerateText)
	api.Post("/content/image", d.Content.GenerateImage)
}
