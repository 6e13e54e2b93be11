package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/metrics"
)

const (
	// RecentBallotsTTL bounds staleness if an invalidation is lost.
	RecentBallotsTTL = 30 * time.Second

	recentBallotsKey = "callvote:ballots:recent"
)

// CacheService provides a Redis cache-aside layer for ballot history reads.
type CacheService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, logger zerolog.Logger) *CacheService {
	if redisURL == "" {
		logger.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{log: logger}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{log: logger}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{log: logger}
	}

	logger.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb, log: logger}
}

// Client returns the underlying Redis client (for health checks and pub/sub). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetRecent returns the cached recent-ballot listing, or nil on a miss.
func (c *CacheService) GetRecent(ctx context.Context) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, recentBallotsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.Metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err == nil {
		metrics.Metrics.CacheHits.Inc()
	}
	return data, err
}

// SetRecent stores the recent-ballot listing.
func (c *CacheService) SetRecent(ctx context.Context, data any) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, recentBallotsKey, b, RecentBallotsTTL).Err()
}

// InvalidateRecent drops the listing after new ballots are written.
func (c *CacheService) InvalidateRecent(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, recentBallotsKey).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
