package livehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/http-server/handlers"
	"github.com/zanzhit/snapshot_recorder/internal/lib/api/response"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type Subscriber interface {
	Subscribe(cameraID string) (<-chan []byte, func(), error)
}

type LiveHandler struct {
	log        *slog.Logger
	subscriber Subscriber
	upgrader   websocket.Upgrader
}

func New(log *slog.Logger, subscriber Subscriber) *LiveHandler {
	return &LiveHandler{
		log:        log,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// Live streams every processed frame of the camera as a binary websocket
// message until the viewer disconnects.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.live.Live"

	cameraID := chi.URLParam(r, "id")

	log := h.log.With(
		slog.String("op", op),
		slog.String("camera_id", cameraID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	frames, cancel, err := h.subscriber.Subscribe(cameraID)
	if err != nil {
		if errors.Is(err, errs.ErrCameraNotFound) {
			handlers.Error(w, r, http.StatusNotFound, response.Error("camera has no live storage", ""))

			return
		}

		log.Error("failed to subscribe", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to subscribe", middleware.GetReqID(r.Context())))

		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", sl.Err(err))

		return
	}
	defer conn.Close()

	log.Info("viewer connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Info("viewer disconnected", sl.Err(err))

				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Info("viewer disconnected")

			return
		}
	}
}
