package httpapi

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/yasserelgammal/rate-limiter/limiter"
	rlstore "github.com/yasserelgammal/rate-limiter/store"
)

// aiLimiter is a per-client token bucket in front of the gateway.
type aiLimiter struct {
	bucket *limiter.TokenBucket
}

func newAILimiter(perMinute, burst int) *aiLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	tb, err := limiter.NewTokenBucket(limiter.Config{
		Rate:     int64(perMinute),
		Duration: time.Minute,
		Burst:    int64(burst),
	}, rlstore.NewMemoryStore(time.Minute))
	if err != nil {
		return &aiLimiter{}
	}
	return &aiLimiter{bucket: tb}
}

func (l *aiLimiter) allow(key string) bool {
	if l == nil || l.bucket == nil {
		return true
	}
	return l.bucket.Allow(key)
}

// clientKey identifies the caller: API key when sent, else remote host.
func clientKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return "key:" + k
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// handleAI serves POST /ai/{action}. The body may carry {"products": [...]};
// otherwise the live catalog is sent.
func (a *App) handleAI(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ai/"), "/")
	action, err := aigateway.ParseAction(name)
	if err != nil {
		writeError(w, &unknownActionError{action: name})
		return
	}
	if !a.aiLimits.allow(clientKey(r)) {
		writeError(w, aigateway.ErrRateLimited)
		return
	}
	var body struct {
		Products []models.Product `json:"products"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
	}
	res, err := a.RunAI(r.Context(), action, body.Products)
	if err != nil {
		if errors.Is(err, aigateway.ErrUnknownAction) {
			err = &unknownActionError{action: name}
		}
		writeError(w, err)
		return
	}
	writeJSON(w, models.AIResponse{Action: string(action), Result: res})
}
