package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dholratri-tickets/internal/logger"
)

const heartbeatInterval = 25 * time.Second

type Handler struct {
	Emitter   *PurchaseEventEmitter
	Logger    *logger.Logger
	Heartbeat time.Duration
}

func NewHandler(emitter *PurchaseEventEmitter, log *logger.Logger) *Handler {
	return &Handler{Emitter: emitter, Logger: log, Heartbeat: heartbeatInterval}
}

// StreamPurchases streams purchase state changes as text/event-stream.
func (h *Handler) StreamPurchases(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// the server's WriteTimeout would otherwise cut the feed
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.Logger.Warn("SSE", fmt.Sprintf("Failed to clear write deadline: %v", err))
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	events := h.Emitter.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Admin feed client connected (%d active)", h.Emitter.ClientCount()))

	interval := h.Heartbeat
	if interval <= 0 {
		interval = heartbeatInterval
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize purchase event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Admin feed client disconnected")
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Accel-Buffering", "no")
}
