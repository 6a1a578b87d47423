package core

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// NewsViewCount pairs a news card id with its accumulated view count.
type NewsViewCount struct {
	NewsID int64 `json:"news_id"`
	Views  int64 `json:"views"`
}

// ViewMetrics is the admin-facing summary of view tracking.
type ViewMetrics struct {
	TotalViews   int64           `json:"total_views"`
	TrackedCards int64           `json:"tracked_cards"`
	Top          []NewsViewCount `json:"top"`
}

// MetricsService reads news view counters back out of Redis.
type MetricsService struct {
	store ViewStore
}

func NewMetricsService(store ViewStore) *MetricsService {
	return &MetricsService{store: store}
}

// Overview returns the global totals plus the current top ten cards.
func (s *MetricsService) Overview(ctx context.Context) (ViewMetrics, error) {
	total, err := s.counterValue(ctx, ViewTotalKey)
	if err != nil {
		return ViewMetrics{}, err
	}
	tracked, err := s.store.ZCard(ctx, ViewRankKey).Result()
	if err != nil {
		return ViewMetrics{}, err
	}
	top, err := s.TopNews(ctx, 10)
	if err != nil {
		return ViewMetrics{}, err
	}
	return ViewMetrics{TotalViews: total, TrackedCards: tracked, Top: top}, nil
}

// TopNews returns the n most viewed cards, most viewed first.
func (s *MetricsService) TopNews(ctx context.Context, n int) ([]NewsViewCount, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := s.store.ZRevRangeWithScores(ctx, ViewRankKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]NewsViewCount, 0, len(entries))
	for _, e := range entries {
		member, ok := e.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, NewsViewCount{NewsID: id, Views: int64(e.Score)})
	}
	return out, nil
}

// CardViews returns the view count for one card; never-viewed cards are 0.
func (s *MetricsService) CardViews(ctx context.Context, newsID int64) (int64, error) {
	return s.counterValue(ctx, ViewCountKey(newsID))
}

func (s *MetricsService) counterValue(ctx context.Context, key string) (int64, error) {
	val, err := s.store.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}
