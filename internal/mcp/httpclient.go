package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/suggest"
)

// HTTPClient implements DataSource by calling the liftlog REST API. The MCP
// binary runs locally (stdio) while the daemon owns the engine; every tool
// call goes through the same API a UI would use.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// get performs a GET and decodes the JSON body into out. A 404 returns
// (false, nil): for the session endpoints that simply means no active session.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return true, nil
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*session.View, error) {
	var view session.View
	ok, err := c.get(ctx, "/api/v1/session", nil, &view)
	if err != nil || !ok {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) SessionStats(ctx context.Context) (*session.Stats, error) {
	var stats session.Stats
	ok, err := c.get(ctx, "/api/v1/session/stats", nil, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) Suggestions(ctx context.Context, limit int) ([]suggest.Candidate, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var candidates []suggest.Candidate
	if _, err := c.get(ctx, "/api/v1/session/suggestions", params, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if _, err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRecord, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	var workouts []models.WorkoutRecord
	if _, err := c.get(ctx, "/api/v1/workouts", params, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}
