package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 5
	defaultBackoff    = 500 * time.Millisecond
)

// Client pulls still images over HTTP, retrying server errors with
// exponential backoff. Callers only see the final outcome.
type Client struct {
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) { f.client = c }
}

func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(f *Client) {
		f.maxRetries = maxRetries
		f.backoff = backoff
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		client:     &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	const op = "services.fetcher.Fetch"

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrTransport, ctx.Err())
			case <-time.After(delay):
			}
		}

		body, retry, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrTransport, lastErr)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retryable(resp.StatusCode), fmt.Errorf("camera returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}

	return body, false, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}

	return false
}
