// Package encoding supervises background encode tasks. Tasks run outside the
// capture worker pool; each submission returns a handle whose outcome can be
// observed.
package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"golang.org/x/sync/semaphore"

	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

type TaskFunc func(ctx context.Context) error

type Task struct {
	ID       string    `json:"task_id"`
	CameraID string    `json:"camera_id"`
	Frames   int       `json:"frames"`
	Started  time.Time `json:"started"`

	done chan struct{}
	err  error
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err reports the task outcome; it is only meaningful after Done is closed.
func (t *Task) Err() error {
	<-t.done

	return t.err
}

type Pool struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	limit   *semaphore.Weighted

	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]*Task
}

// New creates a pool. maxConcurrent bounds simultaneously running tasks;
// zero or less leaves them unbounded. Submission never blocks either way.
func New(log *slog.Logger, m *metrics.Metrics, maxConcurrent int) *Pool {
	p := &Pool{
		log:     log,
		metrics: m,
		running: make(map[string]*Task),
	}

	if maxConcurrent > 0 {
		p.limit = semaphore.NewWeighted(int64(maxConcurrent))
	}

	return p
}

func (p *Pool) Submit(cameraID string, frames int, fn TaskFunc) *Task {
	t := &Task{
		ID:       shortuuid.New(),
		CameraID: cameraID,
		Frames:   frames,
		Started:  time.Now(),
		done:     make(chan struct{}),
	}

	p.mu.Lock()
	p.running[t.ID] = t
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(t, fn)

	return t
}

func (p *Pool) run(t *Task, fn TaskFunc) {
	const op = "services.encoding.run"

	log := p.log.With(
		slog.String("op", op),
		slog.String("task_id", t.ID),
		slog.String("camera_id", t.CameraID),
	)

	defer p.wg.Done()
	defer close(t.done)
	defer func() {
		p.mu.Lock()
		delete(p.running, t.ID)
		p.mu.Unlock()
	}()

	if p.limit != nil {
		// Background context: Acquire cannot fail.
		_ = p.limit.Acquire(context.Background(), 1)
		defer p.limit.Release(1)
	}

	p.metrics.EncodesRunning.Inc()
	defer p.metrics.EncodesRunning.Dec()

	t.err = p.call(fn)
	if t.err != nil {
		log.Error("encode task failed", sl.Err(t.err), slog.Int("frames", t.Frames))
		p.metrics.Encodes.WithLabelValues(t.CameraID, metrics.ResultFailure).Inc()

		return
	}

	log.Debug("encode task finished", slog.Duration("took", time.Since(t.Started)))
	p.metrics.Encodes.WithLabelValues(t.CameraID, metrics.ResultOK).Inc()
}

func (p *Pool) call(fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encode task panicked: %v", r)
		}
	}()

	return fn(context.Background())
}

// Running lists tasks that have not finished yet, oldest first.
func (p *Pool) Running() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]*Task, 0, len(p.running))
	for _, t := range p.running {
		res = append(res, t)
	}

	sort.Slice(res, func(a, b int) bool { return res[a].Started.Before(res[b].Started) })

	return res
}

// Wait blocks until every submitted task has finished or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
