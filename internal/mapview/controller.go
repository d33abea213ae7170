// Package mapview holds the per-session map view model: the fixed base layer,
// the four mutually exclusive weather overlays, the legend panel, the
// viewport and the search markers.
package mapview

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrUnknownOverlay is returned by SwitchLayer for keys outside the four overlays.
var ErrUnknownOverlay = errors.New("unknown overlay")

const (
	DefaultLat  = 52.0
	DefaultLon  = 19.0
	DefaultZoom = 6

	// SearchZoom is used when recentering on a search result.
	SearchZoom = 10
)

// MarkerPolicy decides what happens to earlier markers when a new one is placed.
type MarkerPolicy int

const (
	// MarkersAccumulate keeps every marker for the lifetime of the view.
	MarkersAccumulate MarkerPolicy = iota
	// MarkersReplace removes the previous marker before adding the new one.
	MarkersReplace
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Marker struct {
	Position LatLng `json:"position"`
	Popup    string `json:"popup"`
}

// Options configure a Controller.
type Options struct {
	Tiles   TileSource
	Opacity float64
	Markers MarkerPolicy
	Logger  *slog.Logger
}

// Controller is the map view model of one page session. All methods are
// safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	overlays map[OverlayKey]Overlay
	policy   MarkerPolicy
	logger   *slog.Logger

	mounted []OverlayKey
	active  OverlayKey
	legend  string
	center  LatLng
	zoom    int
	markers []Marker
}

// New creates a controller with the default overlay already selected.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Opacity <= 0 {
		opts.Opacity = 1.0
	}
	c := &Controller{
		overlays: opts.Tiles.Overlays(opts.Opacity),
		policy:   opts.Markers,
		logger:   opts.Logger,
		center:   LatLng{Lat: DefaultLat, Lon: DefaultLon},
		zoom:     DefaultZoom,
	}
	if err := c.SwitchLayer(DefaultOverlay); err != nil {
		panic(err)
	}
	return c
}

// SwitchLayer unmounts every overlay, mounts key and replaces the legend.
// Unknown keys leave the view untouched.
func (c *Controller) SwitchLayer(key OverlayKey) error {
	ov, ok := c.overlays[key]
	if !ok {
		c.logger.Warn("ignoring unknown overlay", "key", string(key))
		return ErrUnknownOverlay
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mounted = c.mounted[:0]
	c.mounted = append(c.mounted, ov.Key)
	c.active = ov.Key
	c.legend = ov.LegendMarkup
	return nil
}

// Recenter moves the viewport.
func (c *Controller) Recenter(lat, lon float64, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.center = LatLng{Lat: lat, Lon: lon}
	c.zoom = zoom
}

// PlaceMarker adds a point marker with popup label.
func (c *Controller) PlaceMarker(lat, lon float64, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Marker{Position: LatLng{Lat: lat, Lon: lon}, Popup: label}
	if c.policy == MarkersReplace {
		c.markers = append(c.markers[:0], m)
		return
	}
	c.markers = append(c.markers, m)
}

// View is a snapshot of the map state for rendering by a client.
type View struct {
	BaseLayer string       `json:"baseLayer"`
	Overlay   Overlay      `json:"overlay"`
	Mounted   []OverlayKey `json:"mounted"`
	Legend    string       `json:"legend"`
	Center    LatLng       `json:"center"`
	Zoom      int          `json:"zoom"`
	Markers   []Marker     `json:"markers"`
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		BaseLayer: BaseTileURL,
		Overlay:   c.overlays[c.active],
		Mounted:   append([]OverlayKey(nil), c.mounted...),
		Legend:    c.legend,
		Center:    c.center,
		Zoom:      c.zoom,
		Markers:   append([]Marker{}, c.markers...),
	}
}

// Active returns the currently mounted overlay.
func (c *Controller) Active() OverlayKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
