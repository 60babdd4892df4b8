package app

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
	"github.com/KeremKalyoncu/objstore/internal/middleware"
)

// NewHTTPServer builds the fiber app with every route registered. The
// returned limiter must be closed on shutdown.
func (c *Container) NewHTTPServer() (*fiber.App, *middleware.RateLimiter) {
	cfg := c.Config.API

	app := fiber.New(fiber.Config{
		AppName:               "objstore",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(c.Logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-API-Key",
	}))

	app.Use(func(ctx *fiber.Ctx) error {
		c.Metrics.IncrementRequests()
		return ctx.Next()
	})

	app.Get("/health", c.HealthHandler.Liveness)
	app.Get("/health/ready", c.HealthHandler.Readiness)
	app.Get("/metrics", c.HealthHandler.Metrics)

	if c.Storage.Local != nil {
		app.Static("/files", c.Storage.Local.BasePath(), fiber.Static{Browse: false})
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)

	api := app.Group("/api/v1")
	api.Use(rateLimiter.Middleware())
	api.Use(middleware.APIKeyAuth(cfg.Key))

	api.Post("/objects", c.ObjectHandler.Upload)
	api.Delete("/objects", c.ObjectHandler.Delete)
	api.Delete("/objects/*", c.ObjectHandler.Delete)

	return app, rateLimiter
}

// errorHandler renders errors no handler answered itself: fiber's own
// (404, 413, ...), typed app errors, and anything else as INTERNAL_ERROR
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(fiber.Map{
				"code":  "HTTP_" + strconv.Itoa(fe.Code),
				"error": fe.Message,
			})
		}

		if apperrors.IsCustomError(err) {
			return ctx.Status(apperrors.GetStatusCode(err)).JSON(fiber.Map{
				"code":  apperrors.GetErrorCode(err),
				"error": apperrors.GetErrorMessage(err),
			})
		}

		log.Error("Unhandled request error",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err),
		)
		return ctx.Status(apperrors.ErrInternal.StatusCode).JSON(fiber.Map{
			"code":  apperrors.ErrInternal.Code,
			"error": apperrors.ErrInternal.Message,
		})
	}
}
