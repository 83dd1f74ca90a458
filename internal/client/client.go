// Package client submits snapshots to the ingestion endpoint with bounded
// retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/pkg/utils"
)

// DefaultBackoff gives five attempts, 500ms doubling up to 10s between them.
var DefaultBackoff = utils.Backoff{MaxRetries: 4, Delay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}

// StatusError is a non-2xx answer from the ingestion endpoint.
type StatusError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *StatusError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("ingestion endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("ingestion endpoint returned %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Transient reports whether the same request may succeed later.
func (e *StatusError) Transient() bool {
	return transientStatus(e.StatusCode)
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// Client posts ingestion requests.
type Client struct {
	url     string
	http    *http.Client
	backoff utils.Backoff
	token   string
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff sets the retry schedule. MaxRetries is the number of retries
// after the first attempt.
func WithBackoff(b utils.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		http:    &http.Client{Timeout: 30 * time.Second},
		backoff: DefaultBackoff,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts req until it is accepted, a non-transient status is returned,
// or the attempts run out. 200 and 202 are both terminal.
func (c *Client) Submit(ctx context.Context, req *ingest.Request) (*ingest.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode ingestion request: %w", err)
	}

	attempts := c.backoff.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff.Sleep(ctx, attempt-1); err != nil {
				return nil, errors.Join(err, lastErr)
			}
		}

		res, err := c.post(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Transient() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Join(ctx.Err(), err)
		}
		c.log.Warn("ingestion submit failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
	}
	return nil, fmt.Errorf("submit failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (*ingest.Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ingestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ingestion response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		var res ingest.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decode ingestion response: %w", err)
		}
		return &res, nil
	}

	se := &StatusError{StatusCode: resp.StatusCode}
	var eb struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(raw, &eb) == nil {
		se.ErrorCode, se.Message = eb.ErrorCode, eb.Message
	}
	return nil, se
}
