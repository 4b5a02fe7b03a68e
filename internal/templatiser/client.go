// Package templatiser submits shaped recipes to the external transformation
// service and owns its retry policy: a 503 is retried forever on a fixed
// interval, a 422 is fatal and logged with the offending payload.
package templatiser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/recipe"
)

// DefaultBackoff is the fixed wait between retries when the service reports
// itself unavailable.
const DefaultBackoff = 10 * time.Second

// authCookie carries the service token on every request.
const authCookie = "gutoolsAuth-assym"

// Client submits recipes to the templatiser endpoint.
type Client struct {
	url        string
	token      string
	backoff    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithBackoff overrides the fixed retry interval.
func WithBackoff(d time.Duration) Option {
	return func(cl *Client) { cl.backoff = d }
}

// New creates a client for the templatiser endpoint.
func New(url, token string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("templatiser: url is required")
	}
	c := &Client{
		url:        url,
		token:      token,
		backoff:    DefaultBackoff,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result is the templatiser's structured response for one recipe.
type Result struct {
	Recipe       recipe.Recipe   `json:"recipe"`
	Cost         float64         `json:"cost"`
	ReviewReason *string         `json:"reviewReason"`
	Expected     json.RawMessage `json:"expected,omitempty"`
	Received     json.RawMessage `json:"received,omitempty"`
}

// Submit sends one shaped recipe to the templatiser.
//
// A 503 response sleeps the backoff interval and retries the identical
// request in a loop with no attempt cap. A 422 logs the submitted payload
// and returns the error without retrying. Any other non-2xx is fatal.
func (c *Client) Submit(ctx context.Context, r *recipe.Recipe) (*Result, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("submit recipe %s: marshal: %w", r.ID, err)
	}

	for {
		result, err := c.submitOnce(ctx, body)
		if err == nil {
			return result, nil
		}

		if httpapi.IsUnavailable(err) {
			c.logger.WarnContext(ctx, "templatiser unavailable, backing off",
				"recipe_id", r.ID, "backoff", c.backoff)
			if err := sleep(ctx, c.backoff); err != nil {
				return nil, err
			}
			continue
		}

		if httpapi.IsValidationRejected(err) {
			c.logger.ErrorContext(ctx, "templatiser rejected recipe",
				"recipe_id", r.ID, "payload", string(body), "error", err)
		}
		return nil, err
	}
}

func (c *Client) submitOnce(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("templatise: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: authCookie, Value: c.token})

	var result Result
	if err := httpapi.DoJSON(c.httpClient, c.logger, req, "templatise", &result); err != nil {
		return nil, err
	}

	// An explicit JSON null decodes as the literal "null"; normalise it to
	// absent so callers can test presence by length.
	if string(result.Expected) == "null" {
		result.Expected = nil
	}
	if string(result.Received) == "null" {
		result.Received = nil
	}
	return &result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
