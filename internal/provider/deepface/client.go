package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config holds the configuration for the DeepFace client
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Model    string
	Detector string
	// Retries after the first attempt; only 5xx and transport errors retry
	RetryCount  int
	BackoffBase time.Duration
}

// DefaultConfig matches a DeepFace container on the same host
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:5000",
		Timeout:     10 * time.Second,
		Model:       "ArcFace",
		Detector:    "opencv",
		RetryCount:  2,
		BackoffBase: time.Second,
	}
}

// maxBackoff caps the wait between attempts
const maxBackoff = 30 * time.Second

// Client talks JSON to the DeepFace REST API
type Client struct {
	http  *http.Client
	cfg   Config
	clock clockwork.Clock
}

type ClientOption func(*Client)

// WithClock replaces the clock that times retry backoff
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	c := &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Represent calls POST /represent. Model and detector default to the
// client configuration.
func (c *Client) Represent(ctx context.Context, req RepresentRequest) (*RepresentResponse, error) {
	if req.ModelName == "" {
		req.ModelName = c.cfg.Model
	}
	if req.DetectorBackend == "" {
		req.DetectorBackend = c.cfg.Detector
	}

	var resp RepresentResponse
	if err := c.post(ctx, "/represent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// backoff returns base, 2*base, 4*base... for attempt 1, 2, 3... capped
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	d := base << (attempt - 1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// post sends in and decodes into out, retrying server side failures
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(backoff(c.cfg.BackoffBase, attempt)):
			}
		}

		lastErr = c.once(ctx, path, payload, out)
		switch {
		case lastErr == nil:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case isClientError(lastErr):
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrDeepFaceUnavailable, lastErr)
}

// once performs a single request
func (c *Client) once(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
