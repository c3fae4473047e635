package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vidgen-gateway/controllers"
	"vidgen-gateway/database"
	"vidgen-gateway/middlewares"
)

// Handlers carries what the route table needs.
type Handlers struct {
	DB       *gorm.DB
	Log      logrus.FieldLogger
	Sessions *middlewares.SessionManager
	Store    *database.Store
	Auth     *controllers.AuthController
	Videos   *controllers.VideoController
	Upload   *controllers.UploadController
}

// Register wires all HTTP routes.
func Register(app *fiber.App, h Handlers) {
	app.Get("/health", controllers.Health(h.DB, h.Log))

	// Every route sees the signed-in user when there is one; generation
	// also works anonymously.
	app.Use(middlewares.CurrentUser(h.Sessions, h.Store))

	// Auth
	auth := app.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/me", middlewares.RequireUser(), h.Auth.Me)

	// Reference files for generation
	app.Post("/upload", h.Upload.Upload)

	// Videos
	videos := app.Group("/videos")
	videos.Post("/generate", middlewares.Idempotency(h.DB, h.Log), h.Videos.Generate)
	videos.Get("/status/:id", h.Videos.Status)
	videos.Get("/file/:id", h.Videos.File)
	videos.Get("/my-videos", middlewares.RequireUser(), h.Videos.MyVideos)
	videos.Get("/explore", h.Videos.Explore)
}
