package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service resolves current conditions through an optional cache and an
// ordered provider chain.
type Service struct {
	providers []Provider
	cache     Cache
	lang      string
	logger    *slog.Logger
}

// NewService creates a new Service. cache may be nil.
func NewService(providers []Provider, cache Cache, lang string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		providers: providers,
		cache:     cache,
		lang:      lang,
		logger:    logger,
	}
}

// Current returns the reading for city. Providers are tried in order: a
// not-found answer is authoritative and stops the chain, any other failure
// falls through to the next provider.
func (s *Service) Current(ctx context.Context, city string) (Reading, error) {
	if len(s.providers) == 0 {
		return Reading{}, fmt.Errorf("no weather providers configured")
	}

	key := CacheKey(city, s.lang)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			// Cache is not critical.
			s.logger.Warn("weather cache read failed", "city", city, "error", err)
		}
		if cached != nil {
			s.logger.Debug("weather served from cache", "city", city)
			return *cached, nil
		}
	}

	var lastErr error
	for _, p := range s.providers {
		r, err := p.Current(ctx, city)
		if err == nil {
			if r.Provider == "" {
				r.Provider = p.Name()
			}
			if s.cache != nil {
				if err := s.cache.Set(ctx, key, r); err != nil {
					s.logger.Warn("weather cache write failed", "city", city, "error", err)
				}
			}
			return r, nil
		}
		if errors.Is(err, ErrCityNotFound) {
			return Reading{}, err
		}
		if ctx.Err() != nil {
			return Reading{}, ctx.Err()
		}

		s.logger.Warn("provider fetch failed", "provider", p.Name(), "city", city, "error", err)
		lastErr = err
	}

	return Reading{}, fmt.Errorf("all weather providers failed: %w", lastErr)
}
