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

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// getJSON fetches path and decodes the response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, what string, out any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return nil
}

func rangeParams(r analytics.Range) url.Values {
	return url.Values{"range": {string(r)}}
}

func (c *HTTPClient) Exercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := c.getJSON(ctx, "/api/v1/exercises", nil, "exercises", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Summaries(ctx context.Context, r analytics.Range) ([]analytics.SessionSummary, error) {
	var out []analytics.SessionSummary
	if err := c.getJSON(ctx, "/api/v1/analytics/summaries", rangeParams(r), "summaries", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) StrengthCurve(ctx context.Context, exerciseID int64, r analytics.Range) ([]analytics.StrengthPoint, error) {
	path := "/api/v1/analytics/strength/" + strconv.FormatInt(exerciseID, 10)
	var out []analytics.StrengthPoint
	if err := c.getJSON(ctx, path, rangeParams(r), "strength curve", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) MoodEnergy(ctx context.Context) ([]analytics.MoodEnergyInsight, error) {
	var out []analytics.MoodEnergyInsight
	if err := c.getJSON(ctx, "/api/v1/analytics/mood-energy", nil, "mood energy", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Streaks(ctx context.Context) (*analytics.StreakData, error) {
	var out analytics.StreakData
	if err := c.getJSON(ctx, "/api/v1/analytics/streaks", nil, "streaks", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Plateaus(ctx context.Context, minStalled int) ([]analytics.PlateauAlert, error) {
	params := url.Values{}
	if minStalled > 0 {
		params.Set("min", strconv.Itoa(minStalled))
	}
	var out []analytics.PlateauAlert
	if err := c.getJSON(ctx, "/api/v1/analytics/plateaus", params, "plateaus", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Dashboard(ctx context.Context, r analytics.Range) (*analytics.Dashboard, error) {
	var out analytics.Dashboard
	if err := c.getJSON(ctx, "/api/v1/analytics/dashboard", rangeParams(r), "dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
