package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"prismatics/internal/events"
	"prismatics/internal/metrics"
	"prismatics/pkg/logger"
)

const (
	// writeWait is the allowance for a single write to complete.
	writeWait = 10 * time.Second

	// pongWait bounds how long a client may go silent before the
	// connection is considered dead. Pings go out well inside it.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// updateMessage is the only payload pushed to clients. It carries no
// data; clients re-fetch the report endpoints on receipt.
var updateMessage = map[string]string{"type": "dashboardUpdate"}

// Handler upgrades dashboard clients to WebSocket and pushes a
// dashboardUpdate message every time the broadcaster signals a change.
type Handler struct {
	broadcaster *events.Broadcaster
	upgrader    websocket.Upgrader
	log         *logger.Logger
}

// NewHandler creates a WebSocket handler over the broadcaster.
func NewHandler(b *events.Broadcaster, log *logger.Logger) *Handler {
	return &Handler{
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from arbitrary origins in
			// development; auth happens upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With("component", "ws_api"),
	}
}

// ServeHTTP upgrades the connection and streams update signals until
// the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	signals, cancel := h.broadcaster.Subscribe()
	metrics.ConnectedSubscribers.Inc()

	defer func() {
		cancel()
		metrics.ConnectedSubscribers.Dec()
		conn.Close()
	}()

	// Reader goroutine: we never expect client messages, but reading is
	// required to process control frames and notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
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
		case <-done:
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(updateMessage); err != nil {
				h.log.Debugf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
