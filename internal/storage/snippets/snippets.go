// Package snippets batches frames in memory and encodes every full batch
// into a short video clip in the background.
package snippets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/lib/metrics"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
)

type Encoder interface {
	Encode(ctx context.Context, req Request) error
}

type Request struct {
	Frames [][]byte
	FPS    int
	CRF    int
	Preset string
	Output string
}

type Dispatcher interface {
	Submit(cameraID string, frames int, fn encoding.TaskFunc) *encoding.Task
}

type MediaSaver interface {
	Save(ctx context.Context, media models.Media) error
}

// Sink owns exactly one live frame buffer. A full or flushed buffer is
// detached under the lock and handed to an encode task; the lock is never
// held while encoding.
type Sink struct {
	log        *slog.Logger
	metrics    *metrics.Metrics
	encoder    Encoder
	dispatcher Dispatcher
	mediaSaver MediaSaver
	now        func() time.Time

	root      string
	batchSize int
	fps       int
	crf       int
	preset    string
	container string

	mu     sync.Mutex
	frames [][]byte
}

// New creates a sink. mediaSaver may be nil.
func New(
	log *slog.Logger,
	m *metrics.Metrics,
	cfg models.VideoSnippetStorage,
	encoder Encoder,
	dispatcher Dispatcher,
	mediaSaver MediaSaver,
) *Sink {
	return &Sink{
		log:        log,
		metrics:    m,
		encoder:    encoder,
		dispatcher: dispatcher,
		mediaSaver: mediaSaver,
		now:        time.Now,
		root:       cfg.Root,
		batchSize:  cfg.BatchSize,
		fps:        cfg.FPS,
		crf:        cfg.CRF,
		preset:     cfg.Preset,
		container:  cfg.Container,
		frames:     make([][]byte, 0, cfg.BatchSize),
	}
}

// Store appends frame to the live buffer and, once the batch is full,
// dispatches it for encoding without waiting for the encoder.
func (s *Sink) Store(_ context.Context, cameraID string, frame []byte) error {
	s.mu.Lock()
	s.frames = append(s.frames, frame)

	var batch [][]byte
	if len(s.frames) >= s.batchSize {
		batch = s.detach()
	}
	buffered := len(s.frames)
	s.mu.Unlock()

	s.metrics.BufferedFrames.WithLabelValues(cameraID).Set(float64(buffered))

	if batch != nil {
		s.dispatch(cameraID, batch)
	}

	return nil
}

// Flush dispatches whatever is buffered. It returns nil when the buffer
// was empty.
func (s *Sink) Flush(cameraID string) *encoding.Task {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()

		return nil
	}
	batch := s.detach()
	s.mu.Unlock()

	s.metrics.BufferedFrames.WithLabelValues(cameraID).Set(0)

	return s.dispatch(cameraID, batch)
}

func (s *Sink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.frames)
}

// detach must be called with mu held.
func (s *Sink) detach() [][]byte {
	batch := s.frames
	s.frames = make([][]byte, 0, s.batchSize)

	return batch
}

func (s *Sink) dispatch(cameraID string, frames [][]byte) *encoding.Task {
	return s.dispatcher.Submit(cameraID, len(frames), func(ctx context.Context) error {
		return s.encode(ctx, cameraID, frames)
	})
}

func (s *Sink) encode(ctx context.Context, cameraID string, frames [][]byte) error {
	const op = "storage.snippets.encode"

	log := s.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
	)

	now := s.now()
	dir := filepath.Join(s.root, cameraID, now.Format(time.DateOnly))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrEncode, err)
	}

	out, err := reserve(dir, now.Format("15-04-05"), s.container)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrEncode, err)
	}
	if base := now.Format("15-04-05") + "." + s.container; filepath.Base(out) != base {
		log.Warn("clip for this second already exists, using another name", slog.String("path", out))
	}

	log.Info("encoding frames", slog.Int("frames", len(frames)), slog.Int("fps", s.fps), slog.String("path", out))

	err = s.encoder.Encode(ctx, Request{
		Frames: frames,
		FPS:    s.fps,
		CRF:    s.crf,
		Preset: s.preset,
		Output: out,
	})
	if err != nil {
		_ = os.Remove(out)

		return fmt.Errorf("%s: %w: %w", op, errs.ErrEncode, err)
	}

	log.Info("created video", slog.String("path", out))

	if s.mediaSaver != nil {
		media := models.Media{
			MediaID:   shortuuid.New(),
			CameraID:  cameraID,
			Kind:      models.MediaVideo,
			FilePath:  out,
			Frames:    len(frames),
			CreatedAt: now,
		}
		if err := s.mediaSaver.Save(ctx, media); err != nil {
			log.Error("failed to save media record", sl.Err(err))
		}
	}

	return nil
}

// maxNameAttempts bounds the suffixes tried for clips started within the
// same second.
const maxNameAttempts = 1000

// reserve creates an empty dir/name.ext, or dir/name_N.ext when that is
// taken, so concurrent encodes never share an output file.
func reserve(dir, name, ext string) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		file := name
		if i > 0 {
			file = fmt.Sprintf("%s_%d", name, i)
		}
		path := filepath.Join(dir, file+"."+ext)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		return path, f.Close()
	}

	return "", fmt.Errorf("no free output name for %s.%s", filepath.Join(dir, name), ext)
}
