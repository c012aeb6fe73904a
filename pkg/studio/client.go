package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to the upstream content-studio API.
type Client struct {
	BaseURL string
	Prefix  string
	Client  *http.Client
}

func NewClient(baseURL, prefix string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  "/" + strings.Trim(prefix, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("studio api error: status %d: %s", e.StatusCode, e.Detail)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token; the client forwards it upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// --- Video creator ---

func (c *Client) GenerateIdeas(ctx context.Context, req *IdeasRequest) (*IdeasResponse, error) {
	var res IdeasResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/ideas", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateIdeas(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GenerateHooks(ctx context.Context, req *HooksRequest) (*HooksResponse, error) {
	var res HooksResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/hooks", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateHooks(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AnalyzeHooks(ctx context.Context, req *HookAnalysisRequest) (*HookAnalysisResponse, error) {
	var res HookAnalysisResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/hooks/analyze", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateHookAnalysis(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GenerateScript(ctx context.Context, req *ScriptRequest) (*ScriptResponse, error) {
	var res ScriptResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/script", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateScript(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AnalyzeScript(ctx context.Context, req *ScriptAnalysisRequest) (*ScriptAnalysisResponse, error) {
	var res ScriptAnalysisResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/script/analyze", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateScriptAnalysis(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) FinalReview(ctx context.Context, req *FinalReviewRequest) (*FinalReviewResponse, error) {
	var res FinalReviewResponse
	if err := c.do(ctx, http.MethodPost, "/content-studio/tiktok/review", nil, req, &res); err != nil {
		return nil, err
	}
	if err := ValidateFinalReview(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Scheduler ---

func (c *Client) GetCalendar(ctx context.Context, from, to time.Time, accountIds []uuid.UUID) ([]ScheduledPost, error) {
	q := url.Values{}
	q.Set("from_date", from.Format(time.RFC3339))
	q.Set("to_date", to.Format(time.RFC3339))
	if len(accountIds) > 0 {
		ids := make([]string, len(accountIds))
		for i, id := range accountIds {
			ids[i] = id.String()
		}
		q.Set("account_ids", strings.Join(ids, ","))
	}

	res := make([]ScheduledPost, 0)
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/calendar", q, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ListScheduledPosts(ctx context.Context) ([]ScheduledPost, error) {
	res := make([]ScheduledPost, 0)
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/posts", nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) DeleteScheduledPost(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/content-studio/scheduler/posts/"+id.String(), nil, nil, nil)
}

func (c *Client) ListAccounts(ctx context.Context) ([]ConnectedAccount, error) {
	res := make([]ConnectedAccount, 0)
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/accounts", nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/content-studio/scheduler/accounts/"+id.String(), nil, nil, nil)
}

// --- Planner ---

func (c *Client) ListNotes(ctx context.Context) (*NotesList, error) {
	var res NotesList
	if err := c.do(ctx, http.MethodGet, "/planner/notes", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/planner/notes/"+id.String(), nil, nil, nil)
}

// --- Analytics ---

// optionalPlatform adds platform to q unless it is empty, which upstream reads as all platforms.
func optionalPlatform(q url.Values, platform string) {
	if platform != "" {
		q.Set("platform", platform)
	}
}

func (c *Client) AnalyticsOverview(ctx context.Context, days int) (*AnalyticsOverview, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	var res AnalyticsOverview
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/analytics/overview", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) BestTimes(ctx context.Context, platform string, days int) (*BestTimes, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	optionalPlatform(q, platform)

	var res BestTimes
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/analytics/best-times", q, nil, &res); err != nil {
		return nil, err
	}
	if res.TopTimes == nil {
		res.TopTimes = make([]BestTimeSlot, 0)
	}
	return &res, nil
}

func (c *Client) TopPosts(ctx context.Context, platform string, days, limit int) ([]PostAnalytics, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("limit", strconv.Itoa(limit))
	optionalPlatform(q, platform)

	res := make([]PostAnalytics, 0)
	if err := c.do(ctx, http.MethodGet, "/content-studio/scheduler/analytics/posts/top", q, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Challenge tracker ---

func (c *Client) ActiveChallenge(ctx context.Context) (*ChallengeWithStats, error) {
	var res ChallengeWithStats
	if err := c.do(ctx, http.MethodGet, "/challenge/active", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) StartChallenge(ctx context.Context, req *ChallengeStart) (*ChallengeWithStats, error) {
	var res ChallengeWithStats
	if err := c.do(ctx, http.MethodPost, "/challenge/start", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ChallengeHistory(ctx context.Context, page, size int) (*ChallengeHistory, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var res ChallengeHistory
	if err := c.do(ctx, http.MethodGet, "/challenge/history", q, nil, &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = make([]Challenge, 0)
	}
	return &res, nil
}

// LogChallengeDay creates the day's entry, or overwrites it if one exists.
func (c *Client) LogChallengeDay(ctx context.Context, req *ChallengeLogCreate) (*ChallengeLog, error) {
	var res ChallengeLog
	if err := c.do(ctx, http.MethodPost, "/challenge/logs", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetChallengeLog(ctx context.Context, date string) (*ChallengeLog, error) {
	var res ChallengeLog
	if err := c.do(ctx, http.MethodGet, "/challenge/logs/"+url.PathEscape(date), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateChallengeLog(ctx context.Context, date string, req *ChallengeLogUpdate) (*ChallengeLog, error) {
	var res ChallengeLog
	if err := c.do(ctx, http.MethodPut, "/challenge/logs/"+url.PathEscape(date), nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends one JSON request. A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.BaseURL + c.Prefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("studio request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(bodyBytes)}
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorDetail pulls FastAPI's {"detail": ...} out of an error body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(payload.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}
