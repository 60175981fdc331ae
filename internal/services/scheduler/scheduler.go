// Package scheduler runs compiled schedule entries on a bounded worker pool.
//
// Every entry is registered with a cron engine; each tick competes for one of
// a fixed number of pool slots and is dropped, never queued, when the slot
// cannot be obtained within the misfire grace period or when the same job id
// already has the maximum number of instances running.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
)

var errEmptyRule = errors.New("schedule rule has neither period nor cron fields")

// JobFunc is the unit of work bound to a schedule entry. It receives a
// context that is not cancelled by Stop.
type JobFunc func(ctx context.Context)

type Options struct {
	Workers      int
	MaxInstances int
	MisfireGrace time.Duration
	Location     *time.Location
}

type Scheduler struct {
	log          *slog.Logger
	metrics      *metrics.Metrics
	cron         *cron.Cron
	parser       cron.Parser
	pool         *semaphore.Weighted
	maxInstances int64
	misfireGrace time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	entry   models.ScheduleEntry
	fn      JobFunc
	cronID  cron.EntryID
	running atomic.Int64
}

type JobStatus struct {
	ID       string         `json:"job_id"`
	CameraID string         `json:"camera_id"`
	Kind     models.JobKind `json:"kind"`
	Rule     models.Rule    `json:"rule"`
	Next     time.Time      `json:"next"`
	Prev     time.Time      `json:"prev"`
	Running  int64          `json:"running"`
}

func New(log *slog.Logger, m *metrics.Metrics, opts Options) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 5
	}
	if opts.MaxInstances < 1 {
		opts.MaxInstances = 3
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	return &Scheduler{
		log:     log,
		metrics: m,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{log: log}),
		),
		parser:       parser,
		pool:         semaphore.NewWeighted(int64(opts.Workers)),
		maxInstances: int64(opts.MaxInstances),
		misfireGrace: opts.MisfireGrace,
		ctx:          ctx,
		cancel:       cancel,
		jobs:         make(map[string]*job),
	}
}

// Add registers fn under entry.ID. An id that is already registered is
// replaced, never duplicated.
func (s *Scheduler) Add(entry models.ScheduleEntry, fn JobFunc) error {
	const op = "services.scheduler.Add"

	schedule, err := s.schedule(entry.Rule)
	if err != nil {
		return fmt.Errorf("%s: job %s: %w", op, entry.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[entry.ID]; ok {
		s.cron.Remove(old.cronID)
		s.log.Debug("replacing job", slog.String("op", op), slog.String("job_id", entry.ID))
	}

	j := &job{entry: entry, fn: fn}
	j.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(j) }))
	s.jobs[entry.ID] = j

	return nil
}

func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}

	s.cron.Remove(j.cronID)
	delete(s.jobs, id)

	return true
}

// Trigger runs a registered job immediately, subject to the same pool and
// instance limits as a scheduled tick.
func (s *Scheduler) Trigger(id string) error {
	const op = "services.scheduler.Trigger"

	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w: %s", op, errs.ErrJobNotFound, id)
	}

	if s.ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, errs.ErrSchedulerStopped)
	}

	go s.run(j)

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling at once. Jobs already running are neither cancelled
// nor waited for; ticks still waiting for a pool slot are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
}

func (s *Scheduler) List() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := s.cron.Entry(j.cronID)
		res = append(res, JobStatus{
			ID:       j.entry.ID,
			CameraID: j.entry.CameraID,
			Kind:     j.entry.Kind,
			Rule:     j.entry.Rule,
			Next:     e.Next,
			Prev:     e.Prev,
			Running:  j.running.Load(),
		})
	}

	sort.Slice(res, func(a, b int) bool { return res[a].ID < res[b].ID })

	return res
}

func (s *Scheduler) run(j *job) {
	const op = "services.scheduler.run"

	if s.ctx.Err() != nil {
		return
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("job_id", j.entry.ID),
	)

	if j.running.Add(1) > s.maxInstances {
		j.running.Add(-1)

		log.Warn("skipping tick, maximum running instances reached", slog.Int64("max_instances", s.maxInstances))
		s.metrics.SkippedTicks.WithLabelValues(j.entry.ID, metrics.ReasonMaxInstances).Inc()

		return
	}
	defer j.running.Add(-1)

	if !s.acquire() {
		log.Warn("skipping tick, no free worker", slog.Duration("misfire_grace", s.misfireGrace))
		s.metrics.SkippedTicks.WithLabelValues(j.entry.ID, metrics.ReasonPoolBusy).Inc()

		return
	}
	defer s.pool.Release(1)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", slog.Any("panic", r))
		}
	}()

	j.fn(context.Background())
}

func (s *Scheduler) acquire() bool {
	if s.misfireGrace <= 0 {
		return s.pool.TryAcquire(1)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.misfireGrace)
	defer cancel()

	return s.pool.Acquire(ctx, 1) == nil
}

func (s *Scheduler) schedule(rule models.Rule) (cron.Schedule, error) {
	switch {
	case rule.Cron != nil:
		if restricted(rule.Cron.Day) && restricted(rule.Cron.DayOfWeek) {
			return s.bothDays(*rule.Cron)
		}

		return s.parser.Parse(rule.Cron.String())
	case rule.Every > 0:
		return cron.Every(rule.Every), nil
	}

	return nil, errEmptyRule
}
