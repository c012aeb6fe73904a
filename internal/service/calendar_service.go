package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"angelamos-operations/internal/calendar"
	"angelamos-operations/internal/dto"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IStudioScheduler interface {
	GetCalendar(ctx context.Context, from, to time.Time, accountIds []uuid.UUID) ([]studio.ScheduledPost, error)
}

type ICalendarService interface {
	Range(q *dto.CalendarQuery) (*dto.CalendarRangeResponse, error)
	Navigate(q *dto.CalendarQuery) (*dto.CalendarRangeResponse, error)
	Posts(ctx context.Context, userId uuid.UUID, q *dto.CalendarQuery) (*dto.CalendarPostsResponse, error)
}

type calendarService struct {
	client     IStudioScheduler
	queryCache *cache.Cache
	now        func() time.Time
}

func NewCalendarService(client IStudioScheduler, queryCache *cache.Cache) ICalendarService {
	return &calendarService{
		client:     client,
		queryCache: queryCache,
		now:        time.Now,
	}
}

type calendarRequest struct {
	ref        time.Time
	view       calendar.View
	loc        *time.Location
	accountIds []uuid.UUID
}

func (s *calendarService) parse(q *dto.CalendarQuery) (*calendarRequest, error) {
	view, err := calendar.ParseView(q.View)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	loc := time.UTC
	if q.Timezone != "" {
		if loc, err = time.LoadLocation(q.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, q.Timezone)
		}
	}

	ref := calendar.Today(s.now().In(loc))
	if q.Date != "" {
		if ref, err = time.ParseInLocation(dto.DateLayout, q.Date, loc); err != nil {
			return nil, fmt.Errorf("%w: date must look like %s", ErrInvalidInput, dto.DateLayout)
		}
	}

	var accountIds []uuid.UUID
	for _, raw := range strings.Split(q.AccountIds, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid account id %q", ErrInvalidInput, raw)
		}
		accountIds = append(accountIds, id)
	}

	return &calendarRequest{ref: ref, view: view, loc: loc, accountIds: accountIds}, nil
}

func describeRange(ref time.Time, view calendar.View) *dto.CalendarRangeResponse {
	from, to := calendar.Range(ref, view)
	cells := calendar.Days(ref, view)
	days := make([]string, len(cells))
	for i, d := range cells {
		days[i] = dto.FormatDate(d)
	}
	return &dto.CalendarRangeResponse{
		View:      string(view),
		Timezone:  ref.Location().String(),
		Reference: dto.FormatDate(ref),
		From:      from.Format(time.RFC3339),
		To:        to.Format(time.RFC3339),
		Days:      days,
	}
}

func (s *calendarService) Range(q *dto.CalendarQuery) (*dto.CalendarRangeResponse, error) {
	req, err := s.parse(q)
	if err != nil {
		return nil, err
	}
	return describeRange(req.ref, req.view), nil
}

func (s *calendarService) Navigate(q *dto.CalendarQuery) (*dto.CalendarRangeResponse, error) {
	req, err := s.parse(q)
	if err != nil {
		return nil, err
	}
	ref, err := calendar.Navigate(req.ref, s.now().In(req.loc), req.view, q.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return describeRange(ref, req.view), nil
}

// Posts returns the scheduled posts inside the view's range, grouped by local day.
func (s *calendarService) Posts(ctx context.Context, userId uuid.UUID, q *dto.CalendarQuery) (*dto.CalendarPostsResponse, error) {
	req, err := s.parse(q)
	if err != nil {
		return nil, err
	}
	from, to := calendar.Range(req.ref, req.view)

	key := calendarCacheKey(userId, from, to, q.AccountIds)
	var posts []studio.ScheduledPost
	if cached, ok := s.queryCache.Get(key); ok {
		posts = cached.([]studio.ScheduledPost)
	} else {
		if posts, err = s.client.GetCalendar(ctx, from, to, req.accountIds); err != nil {
			return nil, err
		}
		s.queryCache.Set(key, posts, cache.DefaultExpiration)
	}

	sorted := append([]studio.ScheduledPost{}, posts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ScheduledFor.Before(sorted[j].ScheduledFor) })

	byDay := make(map[string][]studio.ScheduledPost)
	for _, p := range sorted {
		day := dto.FormatDate(p.ScheduledFor.In(req.loc))
		byDay[day] = append(byDay[day], p)
	}

	return &dto.CalendarPostsResponse{
		CalendarRangeResponse: *describeRange(req.ref, req.view),
		Posts:                 sorted,
		ByDay:                 byDay,
	}, nil
}

func calendarCachePrefix(userId uuid.UUID) string {
	return "calendar:" + userId.String() + ":"
}

func calendarCacheKey(userId uuid.UUID, from, to time.Time, accounts string) string {
	return fmt.Sprintf("%s%d:%d:%s", calendarCachePrefix(userId), from.Unix(), to.Unix(), accounts)
}

// invalidatePrefix drops every query cache entry whose key starts with prefix.
func invalidatePrefix(c *cache.Cache, prefix string) {
	for key := range c.Items() {
		if strings.HasPrefix(key, prefix) {
			c.Delete(key)
		}
	}
}
