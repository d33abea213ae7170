package weather

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name    string
	reading Reading
	err     error
	calls   int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Current(_ context.Context, _ string) (Reading, error) {
	p.calls++
	return p.reading, p.err
}

type mapCache struct {
	data map[string]Reading
}

func (c *mapCache) Get(_ context.Context, key string) (*Reading, error) {
	r, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *mapCache) Set(_ context.Context, key string, r Reading) error {
	c.data[key] = r
	return nil
}

func TestCurrentFallsThroughOnTransportFailure(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("connection refused")}
	second := &stubProvider{name: "second", reading: Reading{CityName: "Warszawa"}}

	svc := NewService([]Provider{first, second}, nil, "pl", nil)
	r, err := svc.Current(context.Background(), "Warszawa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.CityName != "Warszawa" || r.Provider != "second" {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestCurrentStopsOnNotFound(t *testing.T) {
	first := &stubProvider{name: "first", err: ErrCityNotFound}
	second := &stubProvider{name: "second", reading: Reading{CityName: "X"}}

	svc := NewService([]Provider{first, second}, nil, "pl", nil)
	_, err := svc.Current(context.Background(), "Atlantyda")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("second provider should not be called, got %d calls", second.calls)
	}
}

func TestCurrentUsesCache(t *testing.T) {
	p := &stubProvider{name: "owm", reading: Reading{CityName: "Kraków", TemperatureC: 3}}
	cache := &mapCache{data: map[string]Reading{}}

	svc := NewService([]Provider{p}, cache, "pl", nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.Current(context.Background(), "Kraków"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", p.calls)
	}
	if _, ok := cache.data[CacheKey(" kraków ", "pl")]; !ok {
		t.Fatalf("expected reading cached under normalized key")
	}
}

func TestCurrentAllFailed(t *testing.T) {
	svc := NewService([]Provider{&stubProvider{name: "a", err: ErrMalformedResponse}}, nil, "pl", nil)
	_, err := svc.Current(context.Background(), "Gdańsk")
	if err == nil || !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected wrapped ErrMalformedResponse, got %v", err)
	}
}
