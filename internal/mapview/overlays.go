package mapview

import (
	"fmt"
	"net/url"
	"strings"
)

// OverlayKey names one weather overlay.
type OverlayKey string

const (
	OverlayTemp   OverlayKey = "temp"
	OverlayRain   OverlayKey = "rain"
	OverlayClouds OverlayKey = "clouds"
	OverlayWind   OverlayKey = "wind"

	// DefaultOverlay is selected when a view is created.
	DefaultOverlay = OverlayTemp
)

// Keys lists the overlays in radio-group order.
var Keys = []OverlayKey{OverlayTemp, OverlayRain, OverlayClouds, OverlayWind}

// BaseTileURL is the fixed base layer under every overlay.
const BaseTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

// DefaultTileHost serves the weather overlay tiles.
const DefaultTileHost = "https://tile.openweathermap.org/map"

// upstream tile layer name per overlay on tile.openweathermap.org.
var tileLayers = map[OverlayKey]string{
	OverlayTemp:   "temp_new",
	OverlayRain:   "precipitation_new",
	OverlayClouds: "clouds_new",
	OverlayWind:   "wind_new",
}

var legends = map[OverlayKey]string{
	OverlayTemp:   legend("Temperatura (°C)", "temp", "-20", "0", "20", "40+"),
	OverlayRain:   legend("Opady (mm/h)", "rain", "0", "2", "5", "10+"),
	OverlayClouds: legend("Zachmurzenie (%)", "clouds", "0%", "25%", "50%", "100%"),
	OverlayWind:   legend("Wiatr (m/s)", "wind", "0", "5", "10", "20+"),
}

func legend(title, class string, labels ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<b>%s</b><div class="legend-container"><div class="legend-bar legend-%s-bar"></div><div class="legend-labels">`, title, class)
	for _, l := range labels {
		fmt.Fprintf(&b, "<span>%s</span>", l)
	}
	b.WriteString("</div></div>")
	return b.String()
}

// Overlay is a tile layer encoding one weather variable.
type Overlay struct {
	Key          OverlayKey `json:"key"`
	TileSource   string     `json:"tileSource"`
	Opacity      float64    `json:"opacity"`
	LegendMarkup string     `json:"legend"`
}

// Valid reports whether k is one of the four known overlays.
func (k OverlayKey) Valid() bool {
	_, ok := tileLayers[k]
	return ok
}

// Legend returns the fixed legend markup for k, or "" for unknown keys.
func Legend(k OverlayKey) string {
	return legends[k]
}

// TileSource builds the tile URL templates for overlays.
type TileSource struct {
	// APIKey is appended to upstream tile URLs.
	APIKey string
	// ProxyPrefix, when set, points overlays at a local tile proxy
	// (e.g. "/tiles") instead of the provider, keeping the key server-side.
	ProxyPrefix string
	// Host overrides DefaultTileHost.
	Host string
}

func (s TileSource) host() string {
	if s.Host != "" {
		return strings.TrimRight(s.Host, "/")
	}
	return DefaultTileHost
}

// Template returns the {z}/{x}/{y} URL template for k.
func (s TileSource) Template(k OverlayKey) string {
	if s.ProxyPrefix != "" {
		return fmt.Sprintf("%s/%s/{z}/{x}/{y}.png", strings.TrimRight(s.ProxyPrefix, "/"), k)
	}
	return fmt.Sprintf("%s/%s/{z}/{x}/{y}.png?appid=%s", s.host(), tileLayers[k], url.QueryEscape(s.APIKey))
}

// Upstream returns the concrete provider URL of one tile.
func (s TileSource) Upstream(k OverlayKey, z, x, y int) (string, error) {
	layer, ok := tileLayers[k]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOverlay, k)
	}
	return fmt.Sprintf("%s/%s/%d/%d/%d.png?appid=%s", s.host(), layer, z, x, y, url.QueryEscape(s.APIKey)), nil
}

// Overlays builds the four overlay definitions at the given opacity.
func (s TileSource) Overlays(opacity float64) map[OverlayKey]Overlay {
	out := make(map[OverlayKey]Overlay, len(Keys))
	for _, k := range Keys {
		out[k] = Overlay{
			Key:          k,
			TileSource:   s.Template(k),
			Opacity:      opacity,
			LegendMarkup: legends[k],
		}
	}
	return out
}
