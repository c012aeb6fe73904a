package service

import (
	"context"
	"fmt"
	"time"

	"angelamos-operations/internal/dto"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	historyPage = 1
	historySize = 10
)

type IStudioChallenge interface {
	ActiveChallenge(ctx context.Context) (*studio.ChallengeWithStats, error)
	StartChallenge(ctx context.Context, req *studio.ChallengeStart) (*studio.ChallengeWithStats, error)
	ChallengeHistory(ctx context.Context, page, size int) (*studio.ChallengeHistory, error)
	LogChallengeDay(ctx context.Context, req *studio.ChallengeLogCreate) (*studio.ChallengeLog, error)
	GetChallengeLog(ctx context.Context, date string) (*studio.ChallengeLog, error)
	UpdateChallengeLog(ctx context.Context, date string, req *studio.ChallengeLogUpdate) (*studio.ChallengeLog, error)
}

type IChallengeService interface {
	Active(ctx context.Context, userId uuid.UUID, refresh bool) (*studio.ChallengeWithStats, error)
	Start(ctx context.Context, userId uuid.UUID, req *dto.ChallengeStartRequest) (*studio.ChallengeWithStats, error)
	History(ctx context.Context, userId uuid.UUID, q *dto.ChallengeHistoryQuery) (*studio.ChallengeHistory, error)
	Log(ctx context.Context, userId uuid.UUID, date string) (*studio.ChallengeLog, error)
	LogDay(ctx context.Context, userId uuid.UUID, req *dto.ChallengeLogRequest) (*studio.ChallengeLog, error)
	UpdateLog(ctx context.Context, userId uuid.UUID, date string, patch *dto.ChallengeLogPatch) (*studio.ChallengeLog, error)
}

// challengeService proxies the 30-day challenge tracker. Reads are cached per
// user. Any write drops the user's cached challenge data, stats included.
type challengeService struct {
	client     IStudioChallenge
	queryCache *cache.Cache
}

func NewChallengeService(client IStudioChallenge, queryCache *cache.Cache) IChallengeService {
	return &challengeService{client: client, queryCache: queryCache}
}

func challengeCachePrefix(userId uuid.UUID) string {
	return "challenge:" + userId.String() + ":"
}

func parseLogDate(date string) (string, error) {
	if _, err := time.Parse(dto.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date must look like %s", ErrInvalidInput, dto.DateLayout)
	}
	return date, nil
}

func (s *challengeService) Active(ctx context.Context, userId uuid.UUID, refresh bool) (*studio.ChallengeWithStats, error) {
	return cachedQuery(s.queryCache, challengeCachePrefix(userId)+"active", refresh, func() (*studio.ChallengeWithStats, error) {
		return s.client.ActiveChallenge(ctx)
	})
}

func (s *challengeService) History(ctx context.Context, userId uuid.UUID, q *dto.ChallengeHistoryQuery) (*studio.ChallengeHistory, error) {
	page := orDefault(q.Page, historyPage)
	size := orDefault(q.Size, historySize)
	key := fmt.Sprintf("%shistory:%d:%d", challengeCachePrefix(userId), page, size)
	return cachedQuery(s.queryCache, key, false, func() (*studio.ChallengeHistory, error) {
		return s.client.ChallengeHistory(ctx, page, size)
	})
}

func (s *challengeService) Log(ctx context.Context, userId uuid.UUID, date string) (*studio.ChallengeLog, error) {
	date, err := parseLogDate(date)
	if err != nil {
		return nil, err
	}
	return cachedQuery(s.queryCache, challengeCachePrefix(userId)+"log:"+date, false, func() (*studio.ChallengeLog, error) {
		return s.client.GetChallengeLog(ctx, date)
	})
}

// Start replaces the active challenge; the old one moves to history.
func (s *challengeService) Start(ctx context.Context, userId uuid.UUID, req *dto.ChallengeStartRequest) (*studio.ChallengeWithStats, error) {
	res, err := s.client.StartChallenge(ctx, &studio.ChallengeStart{
		StartDate:   req.StartDate,
		ContentGoal: req.ContentGoal,
		JobsGoal:    req.JobsGoal,
	})
	if err != nil {
		return nil, err
	}
	invalidatePrefix(s.queryCache, challengeCachePrefix(userId))
	s.queryCache.Set(challengeCachePrefix(userId)+"active", res, cache.DefaultExpiration)
	return res, nil
}

func (s *challengeService) LogDay(ctx context.Context, userId uuid.UUID, req *dto.ChallengeLogRequest) (*studio.ChallengeLog, error) {
	res, err := s.client.LogChallengeDay(ctx, req.ToStudio())
	if err != nil {
		return nil, err
	}
	s.remember(userId, res)
	return res, nil
}

func (s *challengeService) UpdateLog(ctx context.Context, userId uuid.UUID, date string, patch *dto.ChallengeLogPatch) (*studio.ChallengeLog, error) {
	date, err := parseLogDate(date)
	if err != nil {
		return nil, err
	}
	res, err := s.client.UpdateChallengeLog(ctx, date, patch.ToStudio())
	if err != nil {
		return nil, err
	}
	s.remember(userId, res)
	return res, nil
}

// remember drops the user's derived challenge data and caches the written entry.
func (s *challengeService) remember(userId uuid.UUID, log *studio.ChallengeLog) {
	invalidatePrefix(s.queryCache, challengeCachePrefix(userId))
	if log.LogDate != "" {
		s.queryCache.Set(challengeCachePrefix(userId)+"log:"+log.LogDate, log, cache.DefaultExpiration)
	}
}
