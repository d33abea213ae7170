package httpapi

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-map/internal/history"
	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/search"
	"github.com/i474232898/weather-map/internal/session"
)

// SessionCookie identifies the browser session owning the page state.
const SessionCookie = "sid"

type layerBody struct {
	Layer string `json:"layer" validate:"required"`
}

type searchBody struct {
	City string `json:"city"`
}

// pageState is everything a client needs to redraw the page.
type pageState struct {
	Status  search.Status   `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	User    string          `json:"user"`
	Phase   string          `json:"phase"`
	Panel   string          `json:"panel"`
	Map     mapview.View    `json:"map"`
	History []history.Entry `json:"history,omitempty"`
}

type uiHandler struct {
	sessions *session.Store
}

func (h *uiHandler) session(c *fiber.Ctx) (*session.Session, error) {
	variant, err := session.ParseVariant(c.Params("variant"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	sid := c.Cookies(SessionCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = session.NewID()
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  time.Now().Add(24 * time.Hour),
		})
	}
	return h.sessions.Get(sid, variant), nil
}

// currentUser reads the username cookie; "" means guest.
func currentUser(c *fiber.Ctx) string {
	raw := c.Cookies(UsernameCookie)
	if raw == "" {
		return ""
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return ""
	}
	return name
}

func snapshot(sess *session.Session, user string) pageState {
	st := pageState{
		User:  search.UserLabel(user),
		Phase: sess.Search.Phase().String(),
		Panel: sess.Search.Panel(),
		Map:   sess.Map.View(),
	}
	if sess.Search.Dashboard() {
		st.History = sess.Search.History()
	}
	return st
}

// state serves the page load; the dashboard fetches the user's history here.
func (h *uiHandler) state(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	user := currentUser(c)
	sess.Search.LoadHistory(c.UserContext(), user)
	return c.JSON(snapshot(sess, user))
}

func (h *uiHandler) layer(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req layerBody
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Map.SwitchLayer(mapview.OverlayKey(req.Layer)); err != nil {
		if errors.Is(err, mapview.ErrUnknownOverlay) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(snapshot(sess, currentUser(c)))
}

func (h *uiHandler) search(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req searchBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user := currentUser(c)
	res := sess.Search.Search(c.UserContext(), user, req.City)

	st := snapshot(sess, user)
	st.Status = res.Status
	st.Message = res.Message
	return c.JSON(st)
}
