package httpapi

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-map/internal/mapview"
)

// maxTileBytes caps one upstream tile body.
const maxTileBytes = 1 << 20

// NewTileClient returns the fasthttp client used by the tile proxy.
func NewTileClient(timeout time.Duration) *fasthttp.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &fasthttp.Client{
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxResponseBodySize: maxTileBytes,
	}
}

// tileProxy forwards overlay tile requests so the provider key never
// reaches the browser.
type tileProxy struct {
	source mapview.TileSource
	client *fasthttp.Client
	logger *slog.Logger
}

func (p *tileProxy) serve(c *fiber.Ctx) error {
	z, errZ := c.ParamsInt("z")
	x, errX := c.ParamsInt("x")
	y, errY := c.ParamsInt("y")
	if err := errors.Join(errZ, errX, errY); err != nil || z < 0 || z > 20 || x < 0 || y < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tile coordinates")
	}

	layer := c.Params("layer")
	upstream, err := p.source.Upstream(mapview.OverlayKey(layer), z, x, y)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	// Session and user cookies stay on this side.
	c.Request().Header.Del(fiber.HeaderCookie)

	if err := proxy.Do(c, upstream, p.client); err != nil {
		p.logger.Warn("tile fetch failed", "layer", layer, "error", err)
		c.Response().ResetBody()
		return fiber.NewError(fiber.StatusBadGateway, "tile provider unavailable")
	}

	if status := c.Response().StatusCode(); status != fiber.StatusOK {
		p.logger.Warn("tile provider error", "layer", layer, "status", status)
		c.Response().ResetBody()
		return fiber.NewError(fiber.StatusBadGateway, "tile provider error")
	}

	if len(c.Response().Header.ContentType()) == 0 {
		c.Set(fiber.HeaderContentType, "image/png")
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=600")
	return nil
}
