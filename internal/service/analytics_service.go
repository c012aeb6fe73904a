package service

import (
	"context"
	"fmt"

	"angelamos-operations/internal/dto"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Window defaults match the dashboard's upstream endpoints.
const (
	overviewDays  = 30
	bestTimesDays = 90
	topPostsDays  = 30
	topPostsLimit = 10
)

type IStudioAnalytics interface {
	AnalyticsOverview(ctx context.Context, days int) (*studio.AnalyticsOverview, error)
	BestTimes(ctx context.Context, platform string, days int) (*studio.BestTimes, error)
	TopPosts(ctx context.Context, platform string, days, limit int) ([]studio.PostAnalytics, error)
}

type IAnalyticsService interface {
	Overview(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*studio.AnalyticsOverview, error)
	BestTimes(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*studio.BestTimes, error)
	TopPosts(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*dto.TopPostsResponse, error)
}

type analyticsService struct {
	client     IStudioAnalytics
	queryCache *cache.Cache
}

func NewAnalyticsService(client IStudioAnalytics, queryCache *cache.Cache) IAnalyticsService {
	return &analyticsService{client: client, queryCache: queryCache}
}

// cachedQuery serves key from the query cache, fetching on a miss or when refresh is set.
func cachedQuery[T any](c *cache.Cache, key string, refresh bool, fetch func() (T, error)) (T, error) {
	if !refresh {
		if v, ok := c.Get(key); ok {
			if hit, ok := v.(T); ok {
				return hit, nil
			}
		}
	}
	res, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

func analyticsKey(userId uuid.UUID, parts ...any) string {
	key := "analytics:" + userId.String()
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

func (s *analyticsService) Overview(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*studio.AnalyticsOverview, error) {
	days := orDefault(q.Days, overviewDays)
	return cachedQuery(s.queryCache, analyticsKey(userId, "overview", days), q.Refresh, func() (*studio.AnalyticsOverview, error) {
		return s.client.AnalyticsOverview(ctx, days)
	})
}

func (s *analyticsService) BestTimes(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*studio.BestTimes, error) {
	days := orDefault(q.Days, bestTimesDays)
	return cachedQuery(s.queryCache, analyticsKey(userId, "best-times", q.Platform, days), q.Refresh, func() (*studio.BestTimes, error) {
		return s.client.BestTimes(ctx, q.Platform, days)
	})
}

func (s *analyticsService) TopPosts(ctx context.Context, userId uuid.UUID, q *dto.AnalyticsQuery) (*dto.TopPostsResponse, error) {
	days := orDefault(q.Days, topPostsDays)
	limit := orDefault(q.Limit, topPostsLimit)
	posts, err := cachedQuery(s.queryCache, analyticsKey(userId, "top", q.Platform, days, limit), q.Refresh, func() ([]studio.PostAnalytics, error) {
		return s.client.TopPosts(ctx, q.Platform, days, limit)
	})
	if err != nil {
		return nil, err
	}
	return &dto.TopPostsResponse{PeriodDays: days, Platform: q.Platform, Posts: posts}, nil
}
