// Package server assembles the fiber application: middleware, error handler and every route group.
package server

import (
	"time"

	"motorent/internal/admin"
	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/booking"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/fleet"
	"motorent/internal/notify"
	"motorent/internal/rental"
	"motorent/internal/upload"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const APIPrefix = "/api/v1"

func New(cfg *config.Config, d notify.Dispatcher) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "motorent",
		ErrorHandler: apperr.Handler,
		BodyLimit:    (cfg.MaxUploadSizeMegabyte + 1) << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: cfg.AllowedOrigins() != "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if database.DB == nil {
			status = "degraded"
		} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{"status": status})
	})

	api := app.Group(APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", auth.RegisterHandler(cfg))
	authGroup.Post("/login", auth.LoginHandler(cfg))
	authGroup.Post("/logout", auth.LogoutHandler())
	authGroup.Get("/me", auth.JWTMiddleware(cfg), auth.MeHandler())

	fleet.RegisterRoutes(api, cfg)
	booking.RegisterRoutes(api, cfg, d)
	rental.RegisterRoutes(api, cfg, d)
	admin.RegisterRoutes(api, cfg)
	upload.RegisterRoutes(app, api, cfg)

	return app
}
