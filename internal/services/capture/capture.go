// Package capture implements the per-camera pipeline invoked by the
// scheduler: fetch, post-process, store, notify.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Processor interface {
	Process(image []byte) ([]byte, error)
}

type Sink interface {
	Store(ctx context.Context, cameraID string, frame []byte) error
}

type Flusher interface {
	Flush(cameraID string) *encoding.Task
}

type Notifier interface {
	Success(ctx context.Context)
	Failure(ctx context.Context, msg string)
	Alive(ctx context.Context)
}

type Params struct {
	CameraID  string
	URL       string
	Fetcher   Fetcher
	Processor Processor
	Sinks     []Sink
	// Flushers are the sinks holding buffered frames.
	Flushers []Flusher
	// Notifier is optional.
	Notifier Notifier
}

type Worker struct {
	log       *slog.Logger
	metrics   *metrics.Metrics
	id        string
	url       string
	fetcher   Fetcher
	processor Processor
	sinks     []Sink
	flushers  []Flusher
	notifier  Notifier
}

func New(log *slog.Logger, m *metrics.Metrics, p Params) *Worker {
	return &Worker{
		log:       log,
		metrics:   m,
		id:        p.CameraID,
		url:       p.URL,
		fetcher:   p.Fetcher,
		processor: p.Processor,
		sinks:     p.Sinks,
		flushers:  p.Flushers,
		notifier:  p.Notifier,
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Job runs one capture. Every error, panics included, ends here and is
// reported to the notifier; nothing propagates to the scheduler.
func (w *Worker) Job(ctx context.Context) {
	const op = "services.capture.Job"

	log := w.log.With(
		slog.String("op", op),
		slog.String("camera_id", w.id),
	)

	if err := w.capture(ctx); err != nil {
		log.Error("capture failed", sl.Err(err))
		w.metrics.Captures.WithLabelValues(w.id, metrics.ResultFailure).Inc()

		if w.notifier != nil {
			w.notifier.Failure(ctx, err.Error())
		}

		return
	}

	log.Debug("capture finished")
	w.metrics.Captures.WithLabelValues(w.id, metrics.ResultOK).Inc()

	if w.notifier != nil {
		w.notifier.Success(ctx)
	}
}

func (w *Worker) capture(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panicked: %v", r)
		}
	}()

	img, err := w.fetcher.Fetch(ctx, w.url)
	if err != nil {
		return err
	}

	if w.processor != nil {
		img, err = w.processor.Process(img)
		if err != nil {
			return err
		}
	}

	return w.store(ctx, img)
}

// store hands img to every sink; one failing sink does not keep the others
// from storing.
func (w *Worker) store(ctx context.Context, img []byte) error {
	var result *multierror.Error

	for i, sink := range w.sinks {
		if err := w.storeOne(ctx, sink, img); err != nil {
			result = multierror.Append(result, fmt.Errorf("sink %d: %w", i, err))
		}
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}

	return result.ErrorOrNil()
}

func (w *Worker) storeOne(ctx context.Context, sink Sink, img []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: sink panicked: %v", errs.ErrStorage, r)
		}
	}()

	return sink.Store(ctx, w.id, img)
}

// Flush forces every buffering sink to encode what it holds. Safe to call
// concurrently with Job.
func (w *Worker) Flush() []*encoding.Task {
	const op = "services.capture.Flush"

	log := w.log.With(
		slog.String("op", op),
		slog.String("camera_id", w.id),
	)

	var tasks []*encoding.Task
	for _, f := range w.flushers {
		if task := f.Flush(w.id); task != nil {
			log.Info("flushed buffered frames", slog.String("task_id", task.ID), slog.Int("frames", task.Frames))
			tasks = append(tasks, task)
		}
	}

	return tasks
}

// Heartbeat sends a liveness ping that does not depend on capture outcome.
func (w *Worker) Heartbeat(ctx context.Context) {
	if w.notifier == nil {
		return
	}

	w.notifier.Alive(ctx)
}

func joinErrors(es []error) string {
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}

	return strings.Join(msgs, "; ")
}
