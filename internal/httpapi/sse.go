package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/otel"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Frame is one event on the change stream. IDs increase by one per publish.
type Frame struct {
	ID   uint64
	Type string
	Data []byte
}

// Subscriber receives frames whose type passes its filter.
type Subscriber struct {
	C     chan Frame
	types map[string]bool // nil accepts every type
}

func (s *Subscriber) wants(typ string) bool {
	return s.types == nil || s.types[typ]
}

// SSEHub fans market and scenario events out to /stream clients and keeps
// the most recent frames so a reconnecting dashboard can catch up.
type SSEHub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	seq    uint64
	recent []Frame
}

func NewSSEHub() *SSEHub {
	return &SSEHub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a client. With no types every event is delivered.
func (h *SSEHub) Subscribe(types ...string) *Subscriber {
	s := &Subscriber{C: make(chan Frame, models.DefaultSSEChannelBuffer)}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	otel.AddSSEConnection()
	return s
}

func (h *SSEHub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.C)
		otel.RemoveSSEConnection()
	}
	h.mu.Unlock()
}

// Subscribers returns the number of connected clients.
func (h *SSEHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish marshals v as a frame of the given type. Slow subscribers miss
// frames rather than blocking the market.
func (h *SSEHub) Publish(typ string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	otel.RecordSSEEvent(context.Background())
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	f := Frame{ID: h.seq, Type: typ, Data: b}
	h.recent = append(h.recent, f)
	if len(h.recent) > models.DefaultSSEReplay {
		h.recent = h.recent[len(h.recent)-models.DefaultSSEReplay:]
	}
	for s := range h.subs {
		if !s.wants(typ) {
			continue
		}
		select {
		case s.C <- f:
		default:
		}
	}
}

// Since returns retained frames with ID greater than id, oldest first.
func (h *SSEHub) Since(id uint64) []Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Frame
	for _, f := range h.recent {
		if f.ID > id {
			out = append(out, f)
		}
	}
	return out
}

// Handler serves the stream. ?types=product_update,agent_log narrows it;
// Last-Event-ID (or ?last_event_id=) replays retained frames first.
func (h *SSEHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		var types []string
		if v := r.URL.Query().Get("types"); v != "" {
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					types = append(types, t)
				}
			}
		}
		lastID := r.Header.Get("Last-Event-ID")
		if lastID == "" {
			lastID = r.URL.Query().Get("last_event_id")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		sub := h.Subscribe(types...)
		defer h.Unsubscribe(sub)

		_, _ = fmt.Fprintf(w, "data: %s\n\n", `{"type":"connected"}`)
		var sent uint64
		if lastID != "" {
			if id, err := strconv.ParseUint(lastID, 10, 64); err == nil {
				for _, f := range h.Since(id) {
					if sub.wants(f.Type) {
						writeFrame(w, f)
						sent = f.ID
					}
				}
			}
		}
		flusher.Flush()

		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				_, _ = fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case f, ok := <-sub.C:
				if !ok {
					return
				}
				if f.ID <= sent {
					continue
				}
				writeFrame(w, f)
				flusher.Flush()
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	_, _ = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", f.ID, f.Data)
}
