package httpapi

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/session"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", healthHandler(deps.Checks))

	api := app.Group("/api")
	api.Get("/overlays", func(c *fiber.Ctx) error {
		overlays := deps.Tiles.Overlays(session.BasicOpacity)
		out := make([]mapview.Overlay, 0, len(mapview.Keys))
		for _, k := range mapview.Keys {
			out = append(out, overlays[k])
		}
		return c.JSON(out)
	})

	if deps.History != nil {
		registerHistoryRoutes(api, &historyHandler{svc: deps.History})
	}

	if deps.Sessions != nil {
		ui := &uiHandler{sessions: deps.Sessions}
		g := app.Group("/ui/:variant")
		g.Get("/state", ui.state)
		g.Post("/layer", ui.layer)
		g.Post("/search", ui.search)
	}

	tiles := &tileProxy{source: deps.Tiles, client: deps.TileClient, logger: deps.Logger}
	app.Get("/tiles/:layer/:z/:x/:y.png", tiles.serve)
}

func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "ok"
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = "degraded"
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"service": "weather-map",
			"checks":  results,
		})
	}
}
