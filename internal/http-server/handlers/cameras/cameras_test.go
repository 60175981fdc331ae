package camerashandler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
)

type fakeCameras struct {
	captured []string
	stopped  bool
	catalog  bool
	limit    int
	offset   int
}

func (f *fakeCameras) Cameras() []models.Camera {
	return []models.Camera{{ID: "front", URL: "http://cam/snap.jpg"}}
}

func (f *fakeCameras) Capture(cameraID string) error {
	if f.stopped {
		return fmt.Errorf("app.Capture: %w", errs.ErrSchedulerStopped)
	}
	if cameraID != "front" {
		return fmt.Errorf("app.Capture: %w", errs.ErrCameraNotFound)
	}
	f.captured = append(f.captured, cameraID)

	return nil
}

func (f *fakeCameras) Flush(cameraID string) ([]*encoding.Task, error) {
	if cameraID != "front" {
		return nil, errs.ErrCameraNotFound
	}

	return []*encoding.Task{{ID: "t1", CameraID: cameraID, Frames: 4}}, nil
}

func (f *fakeCameras) Media(_ context.Context, cameraID string, limit, offset int) ([]models.Media, error) {
	if !f.catalog {
		return nil, errs.ErrCatalogDisabled
	}
	f.limit, f.offset = limit, offset

	return []models.Media{{MediaID: "m1", CameraID: cameraID, Kind: models.MediaImage}}, nil
}

func router(f *fakeCameras) http.Handler {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), f)

	r := chi.NewRouter()
	r.Get("/cameras", h.List)
	r.Post("/cameras/{id}/capture", h.Capture)
	r.Post("/cameras/{id}/flush", h.Flush)
	r.Get("/cameras/{id}/media", h.Media)

	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	return rec
}

func TestList(t *testing.T) {
	rec := serve(router(&fakeCameras{}), http.MethodGet, "/cameras")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"camera_id":"front"`)
}

func TestCapture(t *testing.T) {
	f := &fakeCameras{}
	h := router(f)

	rec := serve(h, http.MethodPost, "/cameras/front/capture")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"front"}, f.captured)

	rec = serve(h, http.MethodPost, "/cameras/back/capture")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCapture_WhileShuttingDown(t *testing.T) {
	f := &fakeCameras{stopped: true}

	rec := serve(router(f), http.MethodPost, "/cameras/front/capture")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, f.captured)
}

func TestFlush(t *testing.T) {
	h := router(&fakeCameras{})

	rec := serve(h, http.MethodPost, "/cameras/front/flush")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"task_id":"t1"`)

	rec = serve(h, http.MethodPost, "/cameras/back/flush")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMedia(t *testing.T) {
	f := &fakeCameras{catalog: true}
	h := router(f)

	rec := serve(h, http.MethodGet, "/cameras/front/media?limit=5&offset=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.limit)
	assert.Equal(t, 10, f.offset)
	assert.Contains(t, rec.Body.String(), `"media_id":"m1"`)

	rec = serve(h, http.MethodGet, "/cameras/front/media")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultLimit, f.limit)

	for _, q := range []string{"limit=0", "limit=500", "limit=abc", "offset=-1"} {
		rec = serve(h, http.MethodGet, "/cameras/front/media?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestMedia_CatalogDisabled(t *testing.T) {
	rec := serve(router(&fakeCameras{}), http.MethodGet, "/cameras/front/media")

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
