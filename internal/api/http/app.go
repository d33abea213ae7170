package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-map/internal/history"
	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/session"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps are the components served over HTTP.
type Deps struct {
	History  *history.Service
	Sessions *session.Store
	Tiles    mapview.TileSource
	// TileClient fetches upstream tiles for the proxy.
	TileClient *fasthttp.Client
	Checks     map[string]HealthCheck
	Logger     *slog.Logger
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp builds the Fiber app with middleware and every route registered.
func NewApp(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.TileClient == nil {
		deps.TileClient = NewTileClient(0)
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-map",
		DisableStartupMessage: true,
		// Cookie and path values outlive the handler (session ids, usernames).
		Immutable:    true,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(deps.Logger),
	})

	app.Use(requestid.New())
	if deps.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(recover.New())

	RegisterRoutes(app, deps)
	return app
}

// errorHandler renders every error as {"error": true, "message": ...}.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"requestid", c.Locals("requestid"),
				"error", err)
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}
