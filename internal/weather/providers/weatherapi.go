package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weather-map/internal/common"
	"github.com/i474232898/weather-map/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPI.com error code for "No matching location found."
const weatherAPINoLocation = 1006

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
// It is used as a fallback when OpenWeatherMap is unreachable.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	lang    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey, lang string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		lang:    lang,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
			Accept:  func(status int) bool { return status == http.StatusBadRequest },
		},
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Current(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", city)
		if p.lang != "" {
			values.Set("lang", p.lang)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Location *struct {
			Name string   `json:"name"`
			Lat  *float64 `json:"lat"`
			Lon  *float64 `json:"lon"`
		} `json:"location"`
		Current *struct {
			TempC      *float64 `json:"temp_c"`
			Humidity   *float64 `json:"humidity"`
			WindKph    *float64 `json:"wind_kph"`
			PressureMb *float64 `json:"pressure_mb"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	if payload.Error != nil {
		if payload.Error.Code == weatherAPINoLocation || common.ContainsAnyFold(payload.Error.Message, "no matching location", "not found") {
			return weather.Reading{}, weather.ErrCityNotFound
		}
		return weather.Reading{}, fmt.Errorf("weatherapi error %d: %s", payload.Error.Code, payload.Error.Message)
	}

	loc, cur := payload.Location, payload.Current
	if loc == nil || loc.Name == "" || loc.Lat == nil || loc.Lon == nil {
		return weather.Reading{}, fmt.Errorf("%w: missing location", weather.ErrMalformedResponse)
	}
	if cur == nil || cur.TempC == nil || cur.Humidity == nil || cur.WindKph == nil || cur.PressureMb == nil {
		return weather.Reading{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformedResponse)
	}

	return weather.Reading{
		CityName:     loc.Name,
		Lat:          *loc.Lat,
		Lon:          *loc.Lon,
		Description:  strings.ToLower(cur.Condition.Text),
		TemperatureC: *cur.TempC,
		HumidityPct:  *cur.Humidity,
		PressureHPa:  *cur.PressureMb,
		// Convert wind from kph to m/s.
		WindSpeedMs: *cur.WindKph / 3.6,
		Provider:    p.name,
	}, nil
}
