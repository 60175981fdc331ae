package mediastorage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/storage/postgres"
)

type MediaStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *MediaStorage {
	return &MediaStorage{
		db: db,
	}
}

func (s *MediaStorage) Save(ctx context.Context, media models.Media) error {
	const op = "storage.postgres.media.Save"

	query := fmt.Sprintf(`INSERT INTO %s (media_id, camera_id, kind, file_path, frames, created_at)
		VALUES (:media_id, :camera_id, :kind, :file_path, :frames, :created_at)`, postgres.MediaTable)

	if _, err := s.db.NamedExecContext(ctx, query, media); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *MediaStorage) CameraMedia(ctx context.Context, cameraID string, limit, offset int) ([]models.Media, error) {
	const op = "storage.postgres.media.CameraMedia"

	query := fmt.Sprintf(`
		SELECT media_id, camera_id, kind, file_path, frames, created_at
		FROM %s
		WHERE camera_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, postgres.MediaTable)

	media := []models.Media{}
	if err := s.db.SelectContext(ctx, &media, query, cameraID, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return media, nil
}
