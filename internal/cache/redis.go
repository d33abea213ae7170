package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/weather-map/internal/weather"
	"github.com/redis/go-redis/v9"
)

// ReadingCache keeps recent weather readings in Redis so repeated searches
// for the same city do not hit the provider.
type ReadingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*ReadingCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", addr)

	return &ReadingCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (c *ReadingCache) Close() error {
	return c.client.Close()
}

func (c *ReadingCache) Set(ctx context.Context, key string, r weather.Reading) error {
	bytes, err := encode(r)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	c.logger.Debug("reading cached", "key", key, "ttl", c.ttl)
	return nil
}

// Get returns (nil, nil) when the key is absent.
func (c *ReadingCache) Get(ctx context.Context, key string) (*weather.Reading, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return decode(val)
}

// Ping is used by the health endpoint.
func (c *ReadingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func encode(r weather.Reading) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*weather.Reading, error) {
	var r weather.Reading
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	return &r, nil
}
