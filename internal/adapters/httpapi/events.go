package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aeracore/internal/notify"
)

const (
	eventBuffer  = 16
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// handleEvents streams hub change events to a websocket client. The hub
// listener never blocks; events are dropped when the client falls behind.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	hub := h.svc.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "change events not configured")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	events := make(chan notify.Event, eventBuffer)
	cancel := hub.Subscribe(func(ev notify.Event) {
		select {
		case events <- ev:
		default:
			h.logger.Warn("event stream client lagging, dropping event", zap.Int64("revision", ev.Revision))
		}
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
