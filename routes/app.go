package routes

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vidgen-gateway/config"
	"vidgen-gateway/controllers"
	"vidgen-gateway/database"
	"vidgen-gateway/middlewares"
	"vidgen-gateway/models"
	"vidgen-gateway/services"
	"vidgen-gateway/upstream"
)

// New builds the fiber app with every dependency wired from cfg.
func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger) *fiber.App {
	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		AppName:               "vidgen-gateway",
		ErrorHandler:          middlewares.ErrorHandler(log),
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middlewares.RequestLogger(log))

	// ---- CORS: credentials (the session cookie) only with explicit origins
	origins := strings.TrimSpace(cfg.Server.AllowedOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Range, " + middlewares.IdempotencyHeader,
		ExposeHeaders:    "Content-Range, Content-Length, Accept-Ranges",
	}))

	// ---- Global rate limiter; media streams are exempt (a player issues many range requests)
	if cfg.RateLimit.Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Max,
			Expiration: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), models.MediaPathPrefix)
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
			},
		}))
	}

	store := database.NewStore(db)
	client := upstream.New(cfg.Upstream)
	sessions := middlewares.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Server.Production())
	generation := services.NewGenerationService(client, store, log)

	Register(app, Handlers{
		DB:       db,
		Log:      log,
		Sessions: sessions,
		Store:    store,
		Auth:     controllers.NewAuthController(store, sessions, cfg.Session.BcryptCost, log),
		Videos: controllers.NewVideoController(
			generation,
			services.NewStatusMirror(client, store, log),
			services.NewMediaProxy(client, cfg.Media.CacheControl),
			store,
		),
		Upload: controllers.NewUploadController(generation),
	})
	return app
}
