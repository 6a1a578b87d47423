package core

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for news view tracking.
const (
	ViewCountKeyPrefix = "news:views:"     // per-card counter, suffix is the card id
	ViewRankKey        = "news:views:rank" // sorted set ranking cards by views
	ViewTotalKey       = "news:views:total"
)

// ViewStore is the minimal Redis surface used by view counting and metrics.
type ViewStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	ZIncrBy(ctx context.Context, key string, increment float64, member string) *redis.FloatCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// ViewCounter records news card reads in Redis.
type ViewCounter struct {
	store ViewStore
}

func NewViewCounter(store ViewStore) *ViewCounter {
	return &ViewCounter{store: store}
}

// ViewCountKey returns the per-card counter key for a news card id.
func ViewCountKey(id int64) string {
	return ViewCountKeyPrefix + strconv.FormatInt(id, 10)
}

// Hit bumps the per-card counter, the global total, and the ranking set.
// Counting is best-effort; the first error is returned so callers can log
// it, but the read path must not fail on it.
func (v *ViewCounter) Hit(ctx context.Context, newsID int64) error {
	id := strconv.FormatInt(newsID, 10)
	if err := v.store.Incr(ctx, ViewCountKeyPrefix+id).Err(); err != nil {
		return err
	}
	if err := v.store.Incr(ctx, ViewTotalKey).Err(); err != nil {
		return err
	}
	return v.store.ZIncrBy(ctx, ViewRankKey, 1, id).Err()
}
