package httpapi

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-map/internal/history"
)

// UsernameCookie carries the logged-in user; page scripts read it too.
const UsernameCookie = "username"

type credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type cityBody struct {
	City string `json:"city" validate:"required,max=128"`
}

type historyHandler struct {
	svc *history.Service
}

func registerHistoryRoutes(api fiber.Router, h *historyHandler) {
	api.Post("/register", h.register)
	api.Post("/login", h.login)
	api.Post("/logout", h.logout)

	api.Get("/history/:username", h.list)
	api.Post("/history/:username", h.append)
	api.Delete("/history/:username", h.clear)

	api.Get("/default_city/:username", h.defaultCity)
	api.Post("/default_city/:username", h.setDefaultCity)

	api.Get("/top_cities/:username", h.topCities)
	api.Delete("/user/:username", h.deleteUser)
}

func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func pathUser(c *fiber.Ctx) (string, error) {
	raw := c.Params("username")
	name, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(name) == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid username")
	}
	return name, nil
}

// historyError maps store errors to HTTP statuses.
func historyError(err error) error {
	switch {
	case errors.Is(err, history.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	case errors.Is(err, history.ErrUserExists):
		return fiber.NewError(fiber.StatusBadRequest, "user already exists")
	case errors.Is(err, history.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid username or password")
	}
	return err
}

func (h *historyHandler) register(c *fiber.Ctx) error {
	var req credentials
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.svc.Register(c.UserContext(), req.Username, req.Password); err != nil {
		return historyError(err)
	}
	return c.JSON(fiber.Map{"message": "registered"})
}

func (h *historyHandler) login(c *fiber.Ctx) error {
	var req credentials
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.svc.Authenticate(c.UserContext(), req.Username, req.Password); err != nil {
		return historyError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     UsernameCookie,
		Value:    url.PathEscape(req.Username),
		Path:     "/",
		HTTPOnly: false,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "logged in", "username": req.Username})
}

func (h *historyHandler) logout(c *fiber.Ctx) error {
	c.ClearCookie(UsernameCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *historyHandler) list(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	entries, err := h.svc.List(c.UserContext(), user)
	if err != nil {
		return historyError(err)
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(entries)
}

func (h *historyHandler) append(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	var req cityBody
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.svc.Append(c.UserContext(), user, req.City); err != nil {
		return historyError(err)
	}
	return c.JSON(fiber.Map{"message": "saved"})
}

func (h *historyHandler) clear(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.Clear(c.UserContext(), user); err != nil {
		return historyError(err)
	}
	return c.JSON(fiber.Map{"message": "cleared"})
}

func (h *historyHandler) defaultCity(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	city, err := h.svc.DefaultCity(c.UserContext(), user)
	if err != nil {
		return historyError(err)
	}
	return c.JSON(history.Entry{City: city})
}

func (h *historyHandler) setDefaultCity(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	var req cityBody
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.svc.SetDefaultCity(c.UserContext(), user, req.City); err != nil {
		return historyError(err)
	}
	return c.JSON(fiber.Map{"message": "saved"})
}

func (h *historyHandler) topCities(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", history.DefaultTopCities)
	if limit < 1 || limit > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}
	cities, err := h.svc.TopCities(c.UserContext(), user, limit)
	if err != nil {
		return historyError(err)
	}
	if cities == nil {
		cities = []string{}
	}
	return c.JSON(cities)
}

func (h *historyHandler) deleteUser(c *fiber.Ctx) error {
	user, err := pathUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.UserContext(), user); err != nil {
		return historyError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
