package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

type MediaSaver interface {
	Save(ctx context.Context, media models.Media) error
}

// SingleImage writes every frame to root/camera/YYYY-MM-DD/HH-MM-SS.jpg.
type SingleImage struct {
	log        *slog.Logger
	root       string
	mediaSaver MediaSaver
	now        func() time.Time
}

// New creates the sink. mediaSaver may be nil.
func New(log *slog.Logger, cfg models.SingleImageStorage, mediaSaver MediaSaver) *SingleImage {
	return &SingleImage{
		log:        log,
		root:       cfg.Root,
		mediaSaver: mediaSaver,
		now:        time.Now,
	}
}

func (s *SingleImage) Store(ctx context.Context, cameraID string, image []byte) error {
	const op = "storage.files.Store"

	log := s.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
	)

	now := s.now()
	dir := filepath.Join(s.root, cameraID, now.Format(time.DateOnly))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	path := filepath.Join(dir, now.Format("15-04-05")+".jpg")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}

	log.Info("stored image", slog.String("path", path))

	if s.mediaSaver != nil {
		media := models.Media{
			MediaID:   shortuuid.New(),
			CameraID:  cameraID,
			Kind:      models.MediaImage,
			FilePath:  path,
			Frames:    1,
			CreatedAt: now,
		}
		if err := s.mediaSaver.Save(ctx, media); err != nil {
			log.Error("failed to save media record", sl.Err(err))
		}
	}

	return nil
}
