package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsMessage is the WebSocket rendition of a Frame.
type wsMessage struct {
	ID   uint64          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSHandler serves the change stream over a WebSocket for clients that
// cannot hold an EventSource open. It takes the same types and
// last_event_id query parameters as /stream.
func (h *SSEHub) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the client.
			slog.Debug("websocket upgrade failed", "err", err)
			return
		}
		defer func() { _ = conn.Close() }()

		var types []string
		for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		sub := h.Subscribe(types...)
		defer h.Unsubscribe(sub)

		// Reads only service control frames; a read error means the peer left.
		gone := make(chan struct{})
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(m wsMessage) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(m)
		}
		if err := send(wsMessage{Type: "connected"}); err != nil {
			return
		}
		var sent uint64
		if id, err := strconv.ParseUint(r.URL.Query().Get("last_event_id"), 10, 64); err == nil {
			for _, f := range h.Since(id) {
				if !sub.wants(f.Type) {
					continue
				}
				if err := send(wsMessage{ID: f.ID, Type: f.Type, Data: f.Data}); err != nil {
					return
				}
				sent = f.ID
			}
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case f, ok := <-sub.C:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(wsWriteWait))
					return
				}
				if f.ID <= sent {
					continue
				}
				if err := send(wsMessage{ID: f.ID, Type: f.Type, Data: f.Data}); err != nil {
					return
				}
			}
		}
	}
}
