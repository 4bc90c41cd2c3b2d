package httpapi

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func TestWS_streamsFilteredEvents(t *testing.T) {
	t.Parallel()
	app, ts := newTestServer(t, ServerOptions{InMemory: true})
	conn := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?types=product_update")

	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil || m.Type != "connected" {
		t.Fatalf("first message: %+v %v", m, err)
	}
	if _, err := app.Market.ReorderProduct("6", 10); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Type != "product_update" || m.ID == 0 {
		t.Fatalf("got %+v", m)
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Data, &ev); err != nil || ev.Type != "product_update" {
		t.Fatalf("payload: %s %v", m.Data, err)
	}
}

func TestWS_replaysFromCursor(t *testing.T) {
	t.Parallel()
	app, ts := newTestServer(t, ServerOptions{InMemory: true})
	app.Hub.Publish("agent_log", map[string]int{"n": 1})
	app.Hub.Publish("agent_log", map[string]int{"n": 2})

	conn := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?last_event_id=1")
	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil || m.Type != "connected" {
		t.Fatalf("first message: %+v %v", m, err)
	}
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.ID != 2 || string(m.Data) != `{"n":2}` {
		t.Fatalf("replayed %+v", m)
	}
}
