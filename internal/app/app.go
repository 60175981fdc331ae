// Package app wires cameras, sinks, notifiers and the scheduler together and
// owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zanzhit/snapshot_recorder/internal/config"
	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
	"github.com/zanzhit/snapshot_recorder/internal/services/capture"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
	"github.com/zanzhit/snapshot_recorder/internal/services/fetcher"
	"github.com/zanzhit/snapshot_recorder/internal/services/notifier/kuma"
	"github.com/zanzhit/snapshot_recorder/internal/services/processors"
	"github.com/zanzhit/snapshot_recorder/internal/services/scheduler"
	"github.com/zanzhit/snapshot_recorder/internal/services/triggers"
	"github.com/zanzhit/snapshot_recorder/internal/storage/files"
	"github.com/zanzhit/snapshot_recorder/internal/storage/live"
	"github.com/zanzhit/snapshot_recorder/internal/storage/snippets"
)

type Catalog interface {
	Save(ctx context.Context, media models.Media) error
	CameraMedia(ctx context.Context, cameraID string, limit, offset int) ([]models.Media, error)
}

// Deps are the replaceable collaborators. Zero values select the HTTP
// fetcher, the ffmpeg encoder and no media catalog.
type Deps struct {
	Fetcher capture.Fetcher
	Encoder snippets.Encoder
	Catalog Catalog
}

type App struct {
	log          *slog.Logger
	scheduler    *scheduler.Scheduler
	pool         *encoding.Pool
	hub          *live.Hub
	catalog      Catalog
	drainTimeout time.Duration

	cameras []models.Camera
	workers map[string]*capture.Worker
	// captureJobs holds the first capture entry of every camera.
	captureJobs map[string]string
}

func New(log *slog.Logger, m *metrics.Metrics, cfg *config.Config, deps Deps) (*App, error) {
	const op = "app.New"

	if deps.Fetcher == nil {
		deps.Fetcher = fetcher.New()
	}
	if deps.Encoder == nil {
		deps.Encoder = snippets.FFmpeg{Path: cfg.Encoding.FFmpegPath}
	}

	a := &App{
		log: log,
		scheduler: scheduler.New(log, m, scheduler.Options{
			Workers:      cfg.Scheduler.Workers,
			MaxInstances: cfg.Scheduler.MaxInstances,
			MisfireGrace: cfg.Scheduler.MisfireGrace,
			Location:     cfg.Location(),
		}),
		pool:         encoding.New(log, m, cfg.Encoding.MaxConcurrent),
		hub:          live.NewHub(log),
		catalog:      deps.Catalog,
		drainTimeout: cfg.Encoding.DrainTimeout,
		cameras:      cfg.Cameras,
		workers:      make(map[string]*capture.Worker, len(cfg.Cameras)),
		captureJobs:  make(map[string]string, len(cfg.Cameras)),
	}

	for _, cam := range cfg.Cameras {
		w, err := a.worker(m, cam, deps)
		if err != nil {
			return nil, fmt.Errorf("%s: camera %s: %w", op, cam.ID, err)
		}

		if err := a.register(cam, w); err != nil {
			return nil, fmt.Errorf("%s: camera %s: %w", op, cam.ID, err)
		}

		a.workers[cam.ID] = w
	}

	return a, nil
}

func (a *App) worker(m *metrics.Metrics, cam models.Camera, deps Deps) (*capture.Worker, error) {
	chain, err := processors.Build(cam.PostProcessors)
	if err != nil {
		return nil, err
	}

	var mediaSaver files.MediaSaver
	if deps.Catalog != nil {
		mediaSaver = deps.Catalog
	}

	p := capture.Params{
		CameraID:  cam.ID,
		URL:       cam.URL,
		Fetcher:   deps.Fetcher,
		Processor: chain,
	}

	for _, s := range cam.Storage {
		switch s.Kind {
		case models.StorageSingleImage:
			p.Sinks = append(p.Sinks, files.New(a.log, *s.SingleImage, mediaSaver))
		case models.StorageVideoSnippet:
			sink := snippets.New(a.log, m, *s.VideoSnippet, deps.Encoder, a.pool, mediaSaver)
			p.Sinks = append(p.Sinks, sink)
			p.Flushers = append(p.Flushers, sink)
		case models.StorageLive:
			p.Sinks = append(p.Sinks, a.hub.Sink(cam.ID, *s.Live))
		default:
			return nil, fmt.Errorf("%w: %s", errs.ErrUnknownStorage, s.Kind)
		}
	}

	if cam.Kuma != nil {
		p.Notifier = kuma.New(a.log, m, cam.Kuma.PushURL, cam.Kuma.HeartbeatURL, cam.Kuma.FailureThreshold)
	}

	return capture.New(a.log, m, p), nil
}

func (a *App) register(cam models.Camera, w *capture.Worker) error {
	entries, err := triggers.Compile(cam.ID, cam.Triggers, cam.Kuma != nil)
	if err != nil {
		return err
	}

	for _, e := range entries {
		var fn scheduler.JobFunc

		switch e.Kind {
		case models.JobCapture:
			fn = w.Job
			if _, ok := a.captureJobs[cam.ID]; !ok {
				a.captureJobs[cam.ID] = e.ID
			}
		case models.JobBoundaryFlush, models.JobDailyFlush:
			fn = func(context.Context) { w.Flush() }
		case models.JobHeartbeat:
			fn = w.Heartbeat
		default:
			return fmt.Errorf("unexpected job kind %q", e.Kind)
		}

		if err := a.scheduler.Add(e, fn); err != nil {
			return err
		}

		a.log.Debug("job registered",
			slog.String("job_id", e.ID),
			slog.String("kind", string(e.Kind)),
			slog.String("camera_id", cam.ID),
		)
	}

	return nil
}

func (a *App) Start() {
	a.log.Info("starting scheduler", slog.Int("cameras", len(a.cameras)))
	a.scheduler.Start()
}

// Shutdown stops scheduling and flushes every camera once. Running capture
// jobs are not waited for. Encodes are awaited for at most the configured
// drain timeout, bounded further by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	const op = "app.Shutdown"

	log := a.log.With(slog.String("op", op))

	a.scheduler.Stop()

	for _, cam := range a.cameras {
		a.workers[cam.ID].Flush()
	}

	if a.drainTimeout <= 0 {
		log.Info("shutdown complete", slog.Int("encodes_running", len(a.pool.Running())))

		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.drainTimeout)
	defer cancel()

	if err := a.pool.Wait(ctx); err != nil {
		log.Warn("encodes still running", sl.Err(err), slog.Int("encodes_running", len(a.pool.Running())))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("shutdown complete")

	return nil
}

func (a *App) Cameras() []models.Camera {
	return a.cameras
}

func (a *App) Jobs() []scheduler.JobStatus {
	return a.scheduler.List()
}

func (a *App) Encodes() []*encoding.Task {
	return a.pool.Running()
}

// Capture runs the camera's capture job now, through the same worker pool
// and instance limits as scheduled ticks.
func (a *App) Capture(cameraID string) error {
	const op = "app.Capture"

	jobID, ok := a.captureJobs[cameraID]
	if !ok {
		return fmt.Errorf("%s: %w: %s", op, errs.ErrCameraNotFound, cameraID)
	}

	if err := a.scheduler.Trigger(jobID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Flush(cameraID string) ([]*encoding.Task, error) {
	const op = "app.Flush"

	w, ok := a.workers[cameraID]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrCameraNotFound, cameraID)
	}

	return w.Flush(), nil
}

func (a *App) Media(ctx context.Context, cameraID string, limit, offset int) ([]models.Media, error) {
	const op = "app.Media"

	if _, ok := a.workers[cameraID]; !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrCameraNotFound, cameraID)
	}

	if a.catalog == nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrCatalogDisabled)
	}

	media, err := a.catalog.CameraMedia(ctx, cameraID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return media, nil
}

// Subscribe attaches a live viewer to a camera with a live sink.
func (a *App) Subscribe(cameraID string) (<-chan []byte, func(), error) {
	return a.hub.Subscribe(cameraID)
}
