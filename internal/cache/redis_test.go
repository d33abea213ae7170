package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/i474232898/weather-map/internal/weather"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ReadingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(mr.Addr(), "", 0, ttl, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := decode([]byte("not-json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	r, err := c.Get(context.Background(), "weather:city:pl:nowhere")
	if err != nil || r != nil {
		t.Fatalf("expected (nil, nil) on miss, got (%v, %v)", r, err)
	}
}

func TestSetStoresWithTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 10*time.Minute)
	key := weather.CacheKey("Łódź", "pl")

	if err := c.Set(ctx, key, weather.Reading{CityName: "Łódź", TemperatureC: -1.5}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(key); ttl != 10*time.Minute {
		t.Fatalf("expected ttl 10m, got %v", ttl)
	}

	r, err := c.Get(ctx, key)
	if err != nil || r == nil {
		t.Fatalf("get: %v %v", r, err)
	}
	if r.CityName != "Łódź" || r.TemperatureC != -1.5 {
		t.Fatalf("unexpected reading: %+v", r)
	}

	mr.FastForward(11 * time.Minute)
	if r, err := c.Get(ctx, key); err != nil || r != nil {
		t.Fatalf("expected expiry, got (%v, %v)", r, err)
	}
}

func TestGetCorruptValue(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Set("weather:city:pl:x", "{not json")

	if _, err := c.Get(context.Background(), "weather:city:pl:x"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := New(addr, "", 0, time.Minute, nil); err == nil {
		t.Fatal("expected connection error")
	}
}

type countingProvider struct {
	calls int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Current(_ context.Context, city string) (weather.Reading, error) {
	p.calls++
	if city != "Kraków" {
		return weather.Reading{}, weather.ErrCityNotFound
	}
	return weather.Reading{CityName: "Kraków", Lat: 50.06, Lon: 19.94, TemperatureC: 7}, nil
}

func TestServiceServesRepeatSearchFromRedis(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	p := &countingProvider{}
	svc := weather.NewService([]weather.Provider{p}, c, "pl", nil)

	for i := 0; i < 2; i++ {
		r, err := svc.Current(ctx, "Kraków")
		if err != nil || r.CityName != "Kraków" {
			t.Fatalf("search %d: %+v %v", i, r, err)
		}
	}
	if p.calls != 1 {
		t.Fatalf("expected one provider call, got %d", p.calls)
	}
	if !mr.Exists(weather.CacheKey("Kraków", "pl")) {
		t.Fatal("reading not stored in redis")
	}

	if _, err := svc.Current(ctx, "Atlantyda"); !errors.Is(err, weather.ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if mr.Exists(weather.CacheKey("Atlantyda", "pl")) {
		t.Fatal("not-found answers must not be cached")
	}
}
