package aigateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesServer(t *testing.T, status int, text string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("x-api-key: %q", got)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if sys, _ := req["system"].([]any); len(sys) != 1 {
			t.Errorf("system: %v", req["system"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"nope"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "msg_1", "type": "message", "role": "assistant", "model": DefaultAnthropicModel,
			"content":     []any{map[string]any{"type": "text", "text": text}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAnthropic(t *testing.T, srv *httptest.Server) *Anthropic {
	t.Helper()
	g, err := NewAnthropic(AnthropicConfig{BaseURL: srv.URL + "/", APIKey: "test-key", BreakerFailures: 2})
	require.NoError(t, err)
	return g
}

func TestAnthropic_success(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := messagesServer(t, http.StatusOK, "```json\n{\"score\": 80, \"summary\": \"fine\"}\n```", &hits)
	g := newTestAnthropic(t, srv)
	r, err := g.Run(context.Background(), ActionOptimize, market.SeedCatalog())
	require.NoError(t, err)
	assert.Equal(t, 80.0, r["score"])
	assert.Nil(t, r["raw"])
	assert.Equal(t, "anthropic", g.Name())
}

func TestAnthropic_errorMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusPaymentRequired, ErrQuotaExhausted},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}
	for _, tc := range cases {
		var hits atomic.Int32
		srv := messagesServer(t, tc.status, "", &hits)
		_, err := newTestAnthropic(t, srv).Run(context.Background(), ActionForecast, market.SeedCatalog())
		assert.ErrorIs(t, err, tc.want, tc.status)
		assert.Equal(t, int32(1), hits.Load(), "no retries")
	}
}

func TestAnthropic_breakerOpens(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := messagesServer(t, http.StatusInternalServerError, "", &hits)
	g := newTestAnthropic(t, srv)
	for i := 0; i < 3; i++ {
		_, err := g.Run(context.Background(), ActionAnomaly, nil)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestNewAnthropic_requiresKey(t *testing.T) {
	t.Parallel()
	_, err := NewAnthropic(AnthropicConfig{})
	assert.Error(t, err)
}

func TestStripFence(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```{\"a\":1}```"))
	assert.Equal(t, "plain text", stripFence("plain text"))
}
