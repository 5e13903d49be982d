// Package venuecache shares venue query results between map sessions through Redis.
package venuecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "venuemap:venues:"

// Redis is the subset of the go-redis client the cache uses. *redis.Client satisfies it.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Source is the venue query service behind the cache.
type Source interface {
	ListVenues(ctx context.Context, query models.VenueQuery) ([]models.Venue, error)
	CountVenues(ctx context.Context, category string) (int, error)
}

// Cache decorates a Source with a shared Redis cache of ListVenues results.
// Redis errors never fail a query: the cache is skipped and the source answers.
type Cache struct {
	source  Source
	rdb     Redis
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Open creates a Redis client. An empty address returns nil.
func Open(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// New creates the cache decorator.
func New(source Source, rdb Redis, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		source:  source,
		rdb:     rdb,
		ttl:     ttl,
		metrics: m,
		log:     log,
	}
}

// ListVenues returns the cached result of the query, or asks the source and caches its answer.
func (c *Cache) ListVenues(ctx context.Context, query models.VenueQuery) ([]models.Venue, error) {
	key := keyPrefix + query.Key()

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var venues []models.Venue
		if err = json.Unmarshal([]byte(raw), &venues); err == nil {
			c.metrics.SharedCache.WithLabelValues("hit").Inc()
			return venues, nil
		}
		c.metrics.SharedCache.WithLabelValues("error").Inc()
		c.log.WarnContext(ctx, "Dropping undecodable cache entry", "key", key, "error", err)
	case errors.Is(err, redis.Nil):
		c.metrics.SharedCache.WithLabelValues("miss").Inc()
	default:
		c.metrics.SharedCache.WithLabelValues("error").Inc()
		c.log.WarnContext(ctx, "Shared cache unavailable", "error", err)
	}

	return c.fetch(ctx, key, query)
}

// ListVenuesFresh asks the source without reading the cache and stores the answer,
// replacing whatever the cache held for the query.
func (c *Cache) ListVenuesFresh(ctx context.Context, query models.VenueQuery) ([]models.Venue, error) {
	c.metrics.SharedCache.WithLabelValues("bypass").Inc()
	return c.fetch(ctx, keyPrefix+query.Key(), query)
}

func (c *Cache) fetch(ctx context.Context, key string, query models.VenueQuery) ([]models.Venue, error) {
	venues, err := c.source.ListVenues(ctx, query)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(venues)
	if err != nil {
		return venues, nil
	}
	if err = c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.metrics.SharedCache.WithLabelValues("error").Inc()
		c.log.WarnContext(ctx, "Failed to store venues in shared cache", "key", key, "error", err)
	}

	return venues, nil
}

// CountVenues is not cached.
func (c *Cache) CountVenues(ctx context.Context, category string) (int, error) {
	count, err := c.source.CountVenues(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}

	return count, nil
}
