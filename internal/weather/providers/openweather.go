package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-map/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenWeatherURL is the current-conditions endpoint of OpenWeatherMap.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	lang    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates the provider. An empty baseURL selects
// DefaultOpenWeatherURL.
func NewOpenWeatherProvider(client *http.Client, apiKey, lang, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		lang:    lang,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
			// OWM reports lookup failures (404 unknown city, 400 empty query,
			// 401 bad key) as 4xx with a JSON body carrying cod.
			Accept: acceptClientError,
		},
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// owmPayload mirrors the fields we consume. Pointers distinguish a missing
// field from a zero value.
type owmPayload struct {
	Cod   json.RawMessage `json:"cod"`
	Name  string          `json:"name"`
	Coord *struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

func (p *OpenWeatherProvider) Current(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
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

	var payload owmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		switch resp.StatusCode {
		case http.StatusOK:
			return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
		case http.StatusNotFound:
			return weather.Reading{}, weather.ErrCityNotFound
		default:
			return weather.Reading{}, classify(resp.StatusCode)
		}
	}

	cod, err := parseCod(payload.Cod)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return weather.Reading{}, classify(resp.StatusCode)
		}
		return weather.Reading{}, err
	}
	// Any answer other than cod 200 means the lookup produced no city.
	if cod != http.StatusOK || resp.StatusCode != http.StatusOK {
		return weather.Reading{}, weather.ErrCityNotFound
	}

	return payload.reading(p.name)
}

// parseCod accepts both 200 and "404": OWM is inconsistent about the type.
func parseCod(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing cod", weather.ErrMalformedResponse)
	}
	s := string(bytes.Trim(raw, `"`))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid cod %q", weather.ErrMalformedResponse, s)
	}
	return n, nil
}

func (pl owmPayload) reading(provider string) (weather.Reading, error) {
	missing := func(field string) (weather.Reading, error) {
		return weather.Reading{}, fmt.Errorf("%w: missing %s", weather.ErrMalformedResponse, field)
	}

	switch {
	case pl.Name == "":
		return missing("name")
	case pl.Coord == nil || pl.Coord.Lat == nil || pl.Coord.Lon == nil:
		return missing("coord")
	case pl.Main == nil || pl.Main.Temp == nil:
		return missing("main.temp")
	case pl.Main.Humidity == nil:
		return missing("main.humidity")
	case pl.Main.Pressure == nil:
		return missing("main.pressure")
	case len(pl.Weather) == 0:
		return missing("weather[0]")
	case pl.Wind == nil || pl.Wind.Speed == nil:
		return missing("wind.speed")
	}

	return weather.Reading{
		CityName:     pl.Name,
		Lat:          *pl.Coord.Lat,
		Lon:          *pl.Coord.Lon,
		Description:  pl.Weather[0].Description,
		TemperatureC: *pl.Main.Temp,
		HumidityPct:  *pl.Main.Humidity,
		PressureHPa:  *pl.Main.Pressure,
		WindSpeedMs:  *pl.Wind.Speed,
		Provider:     provider,
	}, nil
}
