package studio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "api/v1/", 2*time.Second)
}

func TestGenerateIdeasForwardsTokenAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/content-studio/tiktok/ideas", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var req IdeasRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ModeGiveMeIdeas, req.Mode)
		assert.Equal(t, 3, req.Count)

		_ = json.NewEncoder(w).Encode(IdeasResponse{
			SessionId: "s1",
			Ideas:     []Idea{{Id: 1, Topic: "Cold starts"}},
		})
	})

	ctx := WithToken(context.Background(), "abc")
	res, err := client.GenerateIdeas(ctx, &IdeasRequest{Mode: ModeGiveMeIdeas, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SessionId)
}

func TestNonSuccessStatusBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","topic"],"msg":"field required"}]}`))
	})

	_, err := client.GenerateHooks(context.Background(), &HooksRequest{Topic: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "field required")
}

func TestMalformedSuccessIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generation_id":"g","session_id":"s","hooks":[]}`))
	})

	_, err := client.GenerateHooks(context.Background(), &HooksRequest{Topic: "x"})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	})
	_, err = client.FinalReview(context.Background(), &FinalReviewRequest{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetCalendarQuery(t *testing.T) {
	account := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/content-studio/scheduler/calendar", r.URL.Path)
		assert.Equal(t, "2024-03-01T00:00:00Z", r.URL.Query().Get("from_date"))
		assert.Equal(t, "2024-04-01T00:00:00Z", r.URL.Query().Get("to_date"))
		assert.Equal(t, account.String(), r.URL.Query().Get("account_ids"))
		_, _ = w.Write([]byte(`[{"id":"` + uuid.NewString() + `","platform":"tiktok","scheduled_for":"2024-03-05T10:00:00Z"}]`))
	})

	posts, err := client.GetCalendar(context.Background(), from, to, []uuid.UUID{account})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "tiktok", posts[0].Platform)
}

func TestDeleteAcceptsEmptyBody(t *testing.T) {
	id := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/planner/notes/"+id.String(), r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteNote(context.Background(), id))
}

func TestValidateScriptRequiresSentences(t *testing.T) {
	err := ValidateScript(&ScriptResponse{GenerationId: "g", SessionId: "s"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBestTimesQueryOmitsEmptyPlatform(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/content-studio/scheduler/analytics/best-times", r.URL.Path)
		assert.Equal(t, "90", r.URL.Query().Get("days"))
		seen = append(seen, r.URL.Query().Get("platform"))
		_, _ = w.Write([]byte(`{"heatmap":{"Monday":{"9":1.5}}}`))
	})

	res, err := client.BestTimes(context.Background(), "", 90)
	require.NoError(t, err)
	assert.NotNil(t, res.TopTimes)
	assert.Contains(t, res.Heatmap, "Monday")

	_, err = client.BestTimes(context.Background(), "tiktok", 90)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "tiktok"}, seen)
}

func TestChallengeLogRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/challenge/logs/2024-03-05", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"log_date":"2024-03-05","day_number":5,"tiktok":2,"medium":1,"total_content":3}`))
		case http.MethodPut:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			// Counts left nil must not be sent, or upstream would zero them.
			assert.Equal(t, map[string]any{"jobs_applied": float64(4)}, body)
			_, _ = w.Write([]byte(`{"log_date":"2024-03-05","jobs_applied":4}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	log, err := client.GetChallengeLog(context.Background(), "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 5, log.DayNumber)
	assert.Equal(t, 2, log.Tiktok)
	assert.Equal(t, 3, log.Content())

	jobs := 4
	log, err = client.UpdateChallengeLog(context.Background(), "2024-03-05", &ChallengeLogUpdate{JobsApplied: &jobs})
	require.NoError(t, err)
	assert.Equal(t, 4, log.JobsApplied)
}

func TestActiveChallengeNotFoundIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/challenge/active", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"No active challenge"}`))
	})

	_, err := client.ActiveChallenge(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "No active challenge", apiErr.Detail)
}
