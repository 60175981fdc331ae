// Package live fans processed frames out to connected viewers. Publishing
// never blocks the capture path: frames are dropped for viewers that fall
// behind.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	buffers map[string]int
	viewers map[string]map[chan []byte]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		buffers: make(map[string]int),
		viewers: make(map[string]map[chan []byte]struct{}),
	}
}

// Sink registers cameraID with the hub and returns a storage sink that
// publishes its frames.
func (h *Hub) Sink(cameraID string, cfg models.LiveStorage) *Sink {
	h.mu.Lock()
	h.buffers[cameraID] = max(cfg.Buffer, 1)
	h.mu.Unlock()

	return &Sink{hub: h}
}

// Subscribe returns a frame channel for cameraID and a function that
// detaches it. The channel is closed on cancel.
func (h *Hub) Subscribe(cameraID string) (<-chan []byte, func(), error) {
	const op = "storage.live.Subscribe"

	h.mu.Lock()
	defer h.mu.Unlock()

	buffer, ok := h.buffers[cameraID]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w: %s", op, errs.ErrCameraNotFound, cameraID)
	}

	ch := make(chan []byte, buffer)
	if h.viewers[cameraID] == nil {
		h.viewers[cameraID] = make(map[chan []byte]struct{})
	}
	h.viewers[cameraID][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.viewers[cameraID], ch)
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel, nil
}

func (h *Hub) Publish(cameraID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.viewers[cameraID] {
		select {
		case ch <- frame:
		default:
			h.log.Debug("viewer is behind, dropping frame", slog.String("camera_id", cameraID))
		}
	}
}

func (h *Hub) Viewers(cameraID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.viewers[cameraID])
}

type Sink struct {
	hub *Hub
}

func (s *Sink) Store(_ context.Context, cameraID string, frame []byte) error {
	s.hub.Publish(cameraID, frame)

	return nil
}
