package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// HandleWebSocket handles GET /ws/state: it upgrades the connection and
// streams periodic PLC state snapshots until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	go h.streamState(conn)
}

// streamState owns the websocket connection. A reader goroutine watches for
// the client closing; the poll loop pushes one StateUpdate per interval.
func (h *Handler) streamState(conn *websocket.Conn) {
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := h.middleware.config.StatePollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.middleware.config.Timeout())
			state := h.middleware.GetState(ctx)
			cancel()

			update := StateUpdate{
				Type:      "state",
				State:     state,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}

			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	}
}
