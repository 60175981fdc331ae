// Package kuma reports camera health to Uptime Kuma push monitors.
package kuma

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

const (
	StatusUp   = "up"
	StatusDown = "down"

	msgOK    = "OK"
	msgAlive = "alive"

	requestTimeout = 5 * time.Second
)

// Notifier debounces failures: a "down" push is sent only after threshold
// consecutive failures, after which the counter starts over.
type Notifier struct {
	log          *slog.Logger
	metrics      *metrics.Metrics
	client       *http.Client
	pushURL      string
	heartbeatURL string
	threshold    int

	mu        sync.Mutex
	failCount int
}

func New(log *slog.Logger, m *metrics.Metrics, pushURL, heartbeatURL string, threshold int) *Notifier {
	if threshold < 1 {
		threshold = 1
	}
	if heartbeatURL == "" {
		heartbeatURL = pushURL
	}

	return &Notifier{
		log:          log,
		metrics:      m,
		client:       &http.Client{Timeout: requestTimeout},
		pushURL:      pushURL,
		heartbeatURL: heartbeatURL,
		threshold:    threshold,
	}
}

func (n *Notifier) Success(ctx context.Context) {
	n.mu.Lock()
	n.failCount = 0
	n.mu.Unlock()

	n.notify(ctx, n.pushURL, StatusUp, msgOK)
}

func (n *Notifier) Failure(ctx context.Context, msg string) {
	n.mu.Lock()
	n.failCount++
	alert := n.failCount >= n.threshold
	if alert {
		n.failCount = 0
	}
	n.mu.Unlock()

	if alert {
		n.notify(ctx, n.pushURL, StatusDown, msg)
	}
}

// Alive pushes a liveness signal that is independent of capture outcome and
// leaves the failure counter untouched.
func (n *Notifier) Alive(ctx context.Context) {
	n.notify(ctx, n.heartbeatURL, StatusUp, msgAlive)
}

// Failures returns the current consecutive failure count.
func (n *Notifier) Failures() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.failCount
}

func (n *Notifier) notify(ctx context.Context, target, status, msg string) {
	const op = "services.notifier.kuma.notify"

	log := n.log.With(
		slog.String("op", op),
		slog.String("status", status),
	)

	if err := n.push(ctx, target, status, msg); err != nil {
		log.Error("kuma notify failed", sl.Err(err))
		n.metrics.Notifications.WithLabelValues(status, metrics.ResultFailure).Inc()

		return
	}

	log.Debug("kuma notified")
	n.metrics.Notifications.WithLabelValues(status, metrics.ResultOK).Inc()
}

func (n *Notifier) push(ctx context.Context, target, status, msg string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrNotify, err)
	}

	q := u.Query()
	q.Set("status", status)
	q.Set("msg", msg)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrNotify, err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrNotify, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: kuma returned %s", errs.ErrNotify, resp.Status)
	}

	return nil
}
