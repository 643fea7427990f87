package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tourchat/tourchat/internal/destination"
)

const (
	defaultTTL  = time.Hour
	pingTimeout = 5 * time.Second
)

// Connect parses redisURL and verifies the server answers a ping before
// handing the client back. The ping carries its own short deadline.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at startup: %w", err)
	}

	return client, nil
}

// Cache wraps a Redis client and provides typed get/set/delete for
// destination enrichment data.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache with a 1-hour TTL.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

// key returns the Redis key for the given city.
func key(city string) string {
	return "enrichment:" + strings.ToLower(strings.TrimSpace(city))
}

// Get retrieves enrichment data from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, city string) (*destination.EnrichmentData, error) {
	val, err := c.client.Get(ctx, key(city)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for city %s: %w", city, err)
	}

	var data destination.EnrichmentData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling cached data for city %s: %w", city, err)
	}

	return &data, nil
}

// Set stores enrichment data in cache with the configured TTL.
func (c *Cache) Set(ctx context.Context, city string, data *destination.EnrichmentData) error {
	if data == nil {
		return nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling enrichment data for city %s: %w", city, err)
	}

	if err := c.client.Set(ctx, key(city), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for city %s: %w", city, err)
	}

	return nil
}

// Noop is the cache used when no REDIS_URL is configured: every get is a
// miss and writes vanish.
type Noop struct{}

func (Noop) Get(context.Context, string) (*destination.EnrichmentData, error) { return nil, nil }
func (Noop) Set(context.Context, string, *destination.EnrichmentData) error   { return nil }
