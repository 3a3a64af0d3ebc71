package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const keyPrefix = "forecast"

// ForecastCache stores AI-generated forecasts keyed by request.
type ForecastCache interface {
	Get(ctx context.Context, req models.ForecastRequest) (models.Forecast, bool, error)
	Set(ctx context.Context, req models.ForecastRequest, forecast models.Forecast) error
}

// RedisCache implements ForecastCache on top of Redis string keys.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to url and verifies the connection.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Key builds the cache key of a request.
func Key(req models.ForecastRequest) string {
	parts := []string{
		keyPrefix,
		normalize(req.Crop),
		normalize(req.Region),
		normalize(string(req.Season)),
		strconv.FormatFloat(req.Quantity, 'f', -1, 64),
	}
	return strings.Join(parts, ":")
}

// Get returns the cached forecast for req, if any.
func (c *RedisCache) Get(ctx context.Context, req models.ForecastRequest) (models.Forecast, bool, error) {
	data, err := c.client.Get(ctx, Key(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Forecast{}, false, nil
	}
	if err != nil {
		return models.Forecast{}, false, fmt.Errorf("redis get: %w", err)
	}

	var forecast models.Forecast
	if err := json.Unmarshal(data, &forecast); err != nil {
		return models.Forecast{}, false, fmt.Errorf("decode cached forecast: %w", err)
	}
	return forecast, true, nil
}

// Set stores forecast for req with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, req models.ForecastRequest, forecast models.Forecast) error {
	data, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	if err := c.client.Set(ctx, Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func normalize(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "-")
}
