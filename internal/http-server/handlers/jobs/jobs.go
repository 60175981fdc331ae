package jobshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/services/encoding"
	"github.com/zanzhit/snapshot_recorder/internal/services/scheduler"
)

type JobsHandler struct {
	log    *slog.Logger
	status Status
}

type Status interface {
	Cameras() []models.Camera
	Jobs() []scheduler.JobStatus
	Encodes() []*encoding.Task
}

func New(log *slog.Logger, status Status) *JobsHandler {
	return &JobsHandler{
		log:    log,
		status: status,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Cameras int    `json:"cameras"`
	Jobs    int    `json:"jobs"`
	Encodes int    `json:"encodes_running"`
}

type JobsResponse struct {
	Jobs    []scheduler.JobStatus `json:"jobs"`
	Encodes []*encoding.Task      `json:"encodes"`
}

func (h *JobsHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, JobsResponse{
		Jobs:    h.status.Jobs(),
		Encodes: h.status.Encodes(),
	})
}

func (h *JobsHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "ok",
		Cameras: len(h.status.Cameras()),
		Jobs:    len(h.status.Jobs()),
		Encodes: len(h.status.Encodes()),
	})
}
