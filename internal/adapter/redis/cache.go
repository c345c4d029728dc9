package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "tribe-map:payload:"

var errMiss = errors.New("cache miss")

// store is the subset of Redis the cache needs.
type store interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedFetcher wraps a Fetcher with a Redis payload cache keyed by URL.
// Redis failures degrade to a direct fetch.
type CachedFetcher struct {
	inner   domain.Fetcher
	store   store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient connects to the Redis server described by a redis:// URL.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(client *goredis.Client, inner domain.Fetcher, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		store:   redisStore{client: client},
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)

	data, err := c.store.get(ctx, key)
	switch {
	case err == nil:
		c.metrics.PayloadCache.WithLabelValues("hit").Inc()
		return data, nil
	case errors.Is(err, errMiss):
		c.metrics.PayloadCache.WithLabelValues("miss").Inc()
	default:
		c.metrics.PayloadCache.WithLabelValues("error").Inc()
		c.logger.Warn("payload cache read failed", "url", url, "error", err)
	}

	data, err = c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.store.set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("payload cache write failed", "url", url, "error", err)
	}
	return data, nil
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}

type redisStore struct {
	client *goredis.Client
}

func (s redisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, errMiss
	}
	return data, err
}

func (s redisStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
