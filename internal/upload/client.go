package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/storage"
)

const maxAttempts = 3

// Client sends backups to a remote LiftLog server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for a LiftLog server. apiKey may be
// empty when the server does not require one.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// FetchStats retrieves the remote row counts.
func (c *Client) FetchStats(ctx context.Context) (*storage.DataStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/v1/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("creating stats request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stats request failed (status %d): %s", resp.StatusCode, body)
	}

	var stats storage.DataStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decoding stats: %w", err)
	}
	return &stats, nil
}

// PushBackup POSTs a backup document to the server's import endpoint, which
// replaces everything stored there. Network errors and 5xx responses are
// retried up to 3 times with exponential backoff; a rejected document is not.
func (c *Client) PushBackup(ctx context.Context, data []byte) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		retry, err := c.pushOnce(ctx, data)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) pushOnce(ctx context.Context, data []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/backup/import", bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("creating import request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return true, fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	var res backup.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return false, fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = http.StatusText(resp.StatusCode)
		}
		return false, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, res.Error)
	}
	return false, nil
}
