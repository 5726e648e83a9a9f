package sessionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/types"
	"github.com/dooshek/ventify/internal/venting"
	"github.com/google/uuid"
)

var ErrNoBaseURL = errors.New("sessions API base URL not configured")

// StatusError is a non-2xx answer from the platform
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

// Client stores finished session summaries on the platform API
type Client struct {
	endpoint   string
	cookie     string
	maxElapsed time.Duration
	httpClient *http.Client

	// initialInterval is shortened by tests
	initialInterval time.Duration

	wg sync.WaitGroup
}

// NewClient creates a sessions API client. An empty base URL is an error;
// callers that want to run offline should simply not wire a client.
func NewClient(cfg types.APIConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	logger.Debugf("Creating sessions API client for %s", cfg.BaseURL)

	return &Client{
		endpoint:        strings.TrimRight(cfg.BaseURL, "/") + cfg.SessionsPath,
		cookie:          cfg.Cookie,
		maxElapsed:      cfg.RetryMaxElapsed,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		initialInterval: backoff.DefaultInitialInterval,
	}, nil
}

// Save posts the summary, retrying network failures and 5xx answers until
// the retry budget or ctx runs out. 4xx answers are not retried.
func (c *Client) Save(ctx context.Context, summary venting.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("error marshaling summary: %w", err)
	}

	key := summary.SessionID
	if key == "" {
		key = uuid.NewString()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxElapsed

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		err := c.post(ctx, payload, key)
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return backoff.Permanent(err)
		}
		if err != nil {
			logger.Debugf("Save attempt %d failed: %v", attempt, err)
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("failed to save session after %d attempt(s): %w", attempt, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Persist saves in the background. Failures are logged, never surfaced.
func (c *Client) Persist(summary venting.Summary) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Save(context.Background(), summary); err != nil {
			logger.Error("Failed to store venting session", err)
			return
		}
		logger.Infof("Stored venting session %s", summary.SessionID)
	}()
}

// Wait blocks until background saves finish
func (c *Client) Wait() {
	c.wg.Wait()
}
