package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
)

func newTestOpenWeather(t *testing.T, handler http.HandlerFunc) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), "test-key", "pl", srv.URL)
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return p
}

func TestOpenWeatherCurrentDecodesReading(t *testing.T) {
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Warszawa" || q.Get("appid") != "test-key" || q.Get("units") != "metric" || q.Get("lang") != "pl" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cod":200,"name":"Warszawa","coord":{"lat":52.23,"lon":21.01},
			"main":{"temp":5.2,"humidity":80,"pressure":1012},
			"weather":[{"description":"mostly cloudy"}],"wind":{"speed":3.1}}`))
	})

	r, err := p.Current(context.Background(), "Warszawa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := weather.Reading{
		CityName: "Warszawa", Lat: 52.23, Lon: 21.01, Description: "mostly cloudy",
		TemperatureC: 5.2, HumidityPct: 80, PressureHPa: 1012, WindSpeedMs: 3.1, Provider: "openweathermap",
	}
	if r != want {
		t.Fatalf("got %+v, want %+v", r, want)
	}
}

func TestOpenWeatherNotFound(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http 404 string cod":  {http.StatusNotFound, `{"cod":"404","message":"city not found"}`},
		"http 200 numeric cod": {http.StatusOK, `{"cod":404}`},
		"http 404 no body":     {http.StatusNotFound, ``},
		"http 400 empty query": {http.StatusBadRequest, `{"cod":"400","message":"Nothing to geocode"}`},
		"http 401 numeric cod": {http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := p.Current(context.Background(), "Atlantyda")
			if !errors.Is(err, weather.ErrCityNotFound) {
				t.Fatalf("expected ErrCityNotFound, got %v", err)
			}
		})
	}
}

func TestOpenWeatherMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>oops</html>`,
		"missing wind":  `{"cod":200,"name":"X","coord":{"lat":1,"lon":2},"main":{"temp":1,"humidity":2,"pressure":3},"weather":[{"description":"d"}]}`,
		"empty weather": `{"cod":200,"name":"X","coord":{"lat":1,"lon":2},"main":{"temp":1,"humidity":2,"pressure":3},"weather":[],"wind":{"speed":1}}`,
		"missing cod":   `{"name":"X"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := p.Current(context.Background(), "X")
			if !errors.Is(err, weather.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestOpenWeatherRetriesServerErrors(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Current(context.Background(), "X")
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected errServerError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestOpenWeatherDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.Current(context.Background(), "X")
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestOpenWeatherNotFoundIsNotRetriedOrFallenThrough(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"cod":"400","message":"Nothing to geocode"}`))
	})

	_, err := p.Current(context.Background(), " ")
	if !errors.Is(err, weather.ErrCityNotFound) || errors.Is(err, errUnexpected) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestOpenWeatherRateLimitIsRetried(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"cod":429,"message":"rate limit"}`))
	})

	_, err := p.Current(context.Background(), "X")
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected errRateLimited, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "", "pl", "")
	if _, err := p.Current(context.Background(), "X"); err == nil {
		t.Fatal("expected error without api key")
	}
}
