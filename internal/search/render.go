package search

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"

	"github.com/i474232898/weather-map/internal/weather"
)

// User-facing texts.
const (
	PromptMissingCity = "Wpisz miasto!"
	MessageNotFound   = "Nie znaleziono miasta!"
	AlertFetchFailed  = "Błąd pobierania danych pogodowych!"
	GuestLabel        = "Gość"
)

var panelTmpl = template.Must(template.New("panel").Funcs(template.FuncMap{
	"num": formatNumber,
}).Parse(`<h2>{{.CityName}}</h2>
<p>{{.Description}}</p>
<p>Temperatura: {{num .TemperatureC}} °C</p>
<p>Wilgotność: {{num .HumidityPct}} %</p>
<p>Ciśnienie: {{num .PressureHPa}} hPa</p>
<p>Wiatr: {{num .WindSpeedMs}} m/s</p>
`))

// formatNumber prints the shortest exact form (5.2, 80, 1012).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderPanel renders a reading into the result panel markup.
func RenderPanel(r weather.Reading) (string, error) {
	var buf bytes.Buffer
	if err := panelTmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return buf.String(), nil
}

// PopupLabel is the marker popup text, already HTML-escaped.
func PopupLabel(r weather.Reading) string {
	return html.EscapeString(fmt.Sprintf("%s: %s°C, %s", r.CityName, formatNumber(r.TemperatureC), r.Description))
}

func notFoundPanel() string {
	return html.EscapeString(MessageNotFound)
}
