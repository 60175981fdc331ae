package camerashandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/http-server/handlers"
	"github.com/zanzhit/snapshot_recorder/internal/lib/api/response"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type CameraHandler struct {
	log     *slog.Logger
	cameras Cameras
}

type Cameras interface {
	Cameras() []models.Camera
	Capture(cameraID string) error
	Flush(cameraID string) ([]*encoding.Task, error)
	Media(ctx context.Context, cameraID string, limit, offset int) ([]models.Media, error)
}

func New(log *slog.Logger, cameras Cameras) *CameraHandler {
	return &CameraHandler{
		log:     log,
		cameras: cameras,
	}
}

type Response struct {
	CameraID string           `json:"camera_id,omitempty"`
	Tasks    []*encoding.Task `json:"tasks,omitempty"`
	Media    []models.Media   `json:"media,omitempty"`
	response.Response
}

func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.cameras.Cameras())
}

func (h *CameraHandler) Capture(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cameras.Capture"

	cameraID := chi.URLParam(r, "id")

	log := h.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.cameras.Capture(cameraID); err != nil {
		h.fail(w, r, log, err, "failed to start capture")

		return
	}

	log.Info("capture requested")

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, Response{CameraID: cameraID})
}

func (h *CameraHandler) Flush(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cameras.Flush"

	cameraID := chi.URLParam(r, "id")

	log := h.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tasks, err := h.cameras.Flush(cameraID)
	if err != nil {
		h.fail(w, r, log, err, "failed to flush")

		return
	}

	log.Info("flush requested", slog.Int("tasks", len(tasks)))

	render.JSON(w, r, Response{CameraID: cameraID, Tasks: tasks})
}

func (h *CameraHandler) Media(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cameras.Media"

	cameraID := chi.URLParam(r, "id")

	log := h.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		handlers.Error(w, r, http.StatusBadRequest, response.Error("limit must be between 1 and 100", ""))

		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		handlers.Error(w, r, http.StatusBadRequest, response.Error("offset must be a non-negative number", ""))

		return
	}

	media, err := h.cameras.Media(r.Context(), cameraID, limit, offset)
	if err != nil {
		h.fail(w, r, log, err, "failed to get media")

		return
	}

	render.JSON(w, r, Response{CameraID: cameraID, Media: media})
}

func (h *CameraHandler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, errs.ErrCameraNotFound):
		handlers.Error(w, r, http.StatusNotFound, response.Error("camera not found", ""))
	case errors.Is(err, errs.ErrSchedulerStopped):
		handlers.Error(w, r, http.StatusServiceUnavailable, response.Error("recorder is shutting down", ""))
	case errors.Is(err, errs.ErrCatalogDisabled):
		handlers.Error(w, r, http.StatusNotImplemented, response.Error("media catalog is disabled", ""))
	default:
		log.Error(msg, sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error(msg, middleware.GetReqID(r.Context())))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}

	return strconv.Atoi(v)
}
