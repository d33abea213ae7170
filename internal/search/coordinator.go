// Package search runs the city search workflow of one page session: fetch the
// reading, render the result panel, move the map and, in the dashboard
// variant, keep the user's history in sync with the backend.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-map/internal/events"
	"github.com/i474232898/weather-map/internal/history"
	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/weather"
)

// Phase is the coordinator state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseHistoryAppend
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseHistoryAppend:
		return "history_append"
	default:
		return "idle"
	}
}

// Status is the outcome of one Search call.
type Status string

const (
	StatusOK           Status = "ok"
	StatusMissingInput Status = "missing_input"
	StatusNotFound     Status = "not_found"
	StatusFailed       Status = "failed"
	// StatusStale marks a completion overtaken by a newer search; it was discarded.
	StatusStale Status = "stale"
)

// WeatherSource resolves current conditions for a city.
type WeatherSource interface {
	Current(ctx context.Context, city string) (weather.Reading, error)
}

// MapView is the part of the map controller the search drives.
type MapView interface {
	Recenter(lat, lon float64, zoom int)
	PlaceMarker(lat, lon float64, label string)
}

// HistoryBackend is the history service contract (in-process or remote).
type HistoryBackend interface {
	Append(ctx context.Context, username, city string) error
	List(ctx context.Context, username string) ([]history.Entry, error)
}

// Publisher receives successful searches.
type Publisher interface {
	PublishSearch(ctx context.Context, ev events.Search) error
}

// Config wires a Coordinator. History nil selects the basic variant.
type Config struct {
	Weather   WeatherSource
	Map       MapView
	History   HistoryBackend
	Publisher Publisher
	Logger    *slog.Logger
}

// Result is what the page needs to update after a search.
type Result struct {
	Status  Status           `json:"status"`
	Message string           `json:"message,omitempty"`
	Panel   string           `json:"panel"`
	Reading *weather.Reading `json:"reading,omitempty"`
	History []history.Entry  `json:"history,omitempty"`
}

// Coordinator serializes the search state of one session. Network calls run
// outside the lock; every completion is tagged with a sequence number and
// only the latest issued search may touch the panel, map or history list.
type Coordinator struct {
	weather   WeatherSource
	mapView   MapView
	history   HistoryBackend
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	phase   Phase
	seq     uint64
	panel   string
	entries []history.Entry
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		weather:   cfg.Weather,
		mapView:   cfg.Map,
		history:   cfg.History,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// Dashboard reports whether this coordinator keeps a history.
func (c *Coordinator) Dashboard() bool {
	return c.history != nil
}

// Search runs one search for city on behalf of username ("" for guests).
func (c *Coordinator) Search(ctx context.Context, username, city string) Result {
	city = strings.TrimSpace(city)
	if city == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.resultLocked(StatusMissingInput, PromptMissingCity, nil)
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.phase = PhaseFetching
	c.mu.Unlock()

	reading, err := c.weather.Current(ctx, city)

	c.mu.Lock()
	if seq != c.seq {
		defer c.mu.Unlock()
		c.logger.Debug("discarding stale search", "city", city, "seq", seq, "latest", c.seq)
		return c.resultLocked(StatusStale, "", nil)
	}

	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		defer c.mu.Unlock()
		c.phase = PhaseIdle
		c.panel = notFoundPanel()
		return c.resultLocked(StatusNotFound, MessageNotFound, nil)

	case err != nil:
		defer c.mu.Unlock()
		c.phase = PhaseIdle
		c.logger.Error("weather fetch failed", "city", city, "error", err)
		return c.resultLocked(StatusFailed, AlertFetchFailed, nil)
	}

	panel, err := RenderPanel(reading)
	if err != nil {
		defer c.mu.Unlock()
		c.phase = PhaseIdle
		c.logger.Error("render result panel", "city", city, "error", err)
		return c.resultLocked(StatusFailed, AlertFetchFailed, nil)
	}
	c.panel = panel
	c.mapView.Recenter(reading.Lat, reading.Lon, mapview.SearchZoom)
	c.mapView.PlaceMarker(reading.Lat, reading.Lon, PopupLabel(reading))

	withHistory := c.history != nil && username != ""
	if withHistory {
		c.phase = PhaseHistoryAppend
	} else {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()

	c.publish(ctx, username, reading)

	if withHistory {
		if err := c.history.Append(ctx, username, reading.CityName); err != nil {
			c.logger.Warn("history append failed", "username", username, "city", reading.CityName, "error", err)
		}
		// Refresh regardless of the append outcome so the list mirrors the backend.
		c.refresh(ctx, username, seq)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		// A newer search took over while history was being synced.
		return c.resultLocked(StatusStale, "", nil)
	}
	c.phase = PhaseIdle
	return c.resultLocked(StatusOK, "", &reading)
}

// LoadHistory fetches the full history, as on page load. Guests and the
// basic variant have no history.
func (c *Coordinator) LoadHistory(ctx context.Context, username string) []history.Entry {
	if c.history == nil || username == "" {
		return nil
	}

	c.mu.Lock()
	seq := c.seq
	c.mu.Unlock()

	c.refresh(ctx, username, seq)
	return c.History()
}

// refresh replaces the displayed list unless a newer search has started or
// the fetch fails, in which case the prior list stays.
func (c *Coordinator) refresh(ctx context.Context, username string, seq uint64) {
	entries, err := c.history.List(ctx, username)
	if err != nil {
		c.logger.Warn("history fetch failed", "username", username, "error", err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return
	}
	c.entries = entries
}

func (c *Coordinator) publish(ctx context.Context, username string, r weather.Reading) {
	if c.publisher == nil {
		return
	}
	ev := events.Search{
		Username:     username,
		City:         r.CityName,
		Lat:          r.Lat,
		Lon:          r.Lon,
		TemperatureC: r.TemperatureC,
		At:           time.Now().UTC(),
	}
	if err := c.publisher.PublishSearch(ctx, ev); err != nil {
		c.logger.Warn("search event not published", "city", r.CityName, "error", err)
	}
}

func (c *Coordinator) resultLocked(status Status, message string, r *weather.Reading) Result {
	res := Result{
		Status:  status,
		Message: message,
		Panel:   c.panel,
		Reading: r,
	}
	if c.history != nil {
		res.History = append([]history.Entry{}, c.entries...)
	}
	return res
}

// Phase returns the current state.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Panel returns the current result panel markup.
func (c *Coordinator) Panel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

// History returns the displayed history list.
func (c *Coordinator) History() []history.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]history.Entry{}, c.entries...)
}

// UserLabel is the name shown in the page header.
func UserLabel(username string) string {
	if username == "" {
		return GuestLabel
	}
	return username
}
