package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/notify"
	"github.com/charbel-alt28/aura-retail-ai/internal/ops"
	"github.com/charbel-alt28/aura-retail-ai/internal/scenario"
	"github.com/charbel-alt28/aura-retail-ai/internal/store"
	"github.com/charbel-alt28/aura-retail-ai/internal/ui"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (dashboard served from another origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server and the market it serves.
type ServerOptions struct {
	Home    string
	Addr    string
	Dev     bool
	APIKey  string // if set, require X-API-Key header or query api_key
	Version string

	DBDriver string // "sqlite" (default) or "postgres"
	DBURL    string // for postgres: connection string (or set DATABASE_URL env)
	InMemory bool   // skip persistence entirely

	Catalog        []models.Product // seed when the database is empty; nil uses market.SeedCatalog
	Gateway        aigateway.Gateway
	AIRatePerMin   int // token bucket on /ai/; zero means 10
	AIBurst        int // zero means 5
	ScenarioDelays *scenario.Delays
	Notifier       *notify.Registry

	MetricsHandler http.Handler // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
}

// App holds the HTTP server, SSE hub, market state and the services built on it.
type App struct {
	Server   *http.Server
	Hub      *SSEHub
	Store    store.Store // nil when running in memory
	Market   *market.Store
	Ops      *ops.Service
	Runner   *scenario.Runner
	Gateway  aigateway.Gateway
	Notifier *notify.Registry
	Home     string

	version  string
	mirror   *store.Mirror
	unsub    func()
	baseCtx  context.Context
	cancel   context.CancelFunc
	aiLimits *aiLimiter

	closeOnce sync.Once
}

// NewApp builds the market (restored from the database when one is configured),
// the services around it, and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	app, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", app.handlePlainMetrics)
	}
	mux.HandleFunc("/config", app.handleConfig)
	mux.HandleFunc("/bootstrap", app.handleBootstrap)
	mux.HandleFunc("/stream", app.Hub.Handler())
	mux.HandleFunc("/ws", app.Hub.WSHandler())

	mux.HandleFunc("/products", app.handleProducts)
	mux.HandleFunc("/products/", app.handleProduct)
	mux.HandleFunc("/queries", app.handleQueries)
	mux.HandleFunc("/queries/", app.handleQuery)
	mux.HandleFunc("/logs", app.handleLogs)
	mux.HandleFunc("/simulation", app.handleSimulation)
	mux.HandleFunc("/scenario/run", app.handleScenarioRun)
	mux.HandleFunc("/monitoring", app.handleMonitoring)
	mux.HandleFunc("/ops/", app.handleOps)
	mux.HandleFunc("/ai/", app.handleAI)

	mux.Handle("/", ui.Handler())

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "aura")
	}
	app.Server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	app.Server.RegisterOnShutdown(app.Close)
	return app, nil
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets /ws take over the connection.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (a *App) handlePlainMetrics(w http.ResponseWriter, r *http.Request) {
	m := a.Ops.Metrics()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "# TYPE aura_products gauge\naura_products %d\n", m.Products)
	_, _ = fmt.Fprintf(w, "# TYPE aura_low_stock_products gauge\naura_low_stock_products %d\n", m.CriticalItems)
	_, _ = fmt.Fprintf(w, "# TYPE aura_stock_health_percent gauge\naura_stock_health_percent %d\n", m.StockHealth)
	_, _ = fmt.Fprintf(w, "# TYPE aura_pending_queries gauge\naura_pending_queries %d\n", m.PendingQueries)
}

func (a *App) configView() models.Config {
	provider := ""
	if a.Gateway != nil {
		provider = a.Gateway.Name()
	}
	return models.Config{Home: a.Home, Version: a.version, AIProvider: provider, Simulating: a.Market.Simulating()}
}

func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, a.configView())
}

func (a *App) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := a.Market.Snapshot()
	writeJSON(w, models.Bootstrap{
		Config:     a.configView(),
		Products:   snap.Products,
		Queries:    nonNil(snap.Queries),
		Logs:       nonNil(snap.Logs),
		Simulating: snap.Simulating,
		Metrics:    ops.Rollup(snap),
	})
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidJSON
	}
	return nil
}

var (
	errInvalidJSON = errors.New("invalid json")
	errBadRequest  = errors.New("bad request")
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	writeJSONError(w, code, msg)
}

func errorStatus(err error) (int, string) {
	var unknown *unknownActionError
	switch {
	case errors.As(err, &unknown):
		return http.StatusBadRequest, "Unknown action: " + unknown.action
	case errors.Is(err, market.ErrProductNotFound), errors.Is(err, market.ErrQueryNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, market.ErrInvalidQuantity), errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidDiscount), errors.Is(err, market.ErrInvalidStock),
		errors.Is(err, market.ErrInvalidDemand), errors.Is(err, market.ErrInvalidQuery),
		errors.Is(err, market.ErrInvalidLog), errors.Is(err, errInvalidJSON), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, scenario.ErrAlreadyRunning), errors.Is(err, market.ErrSimulationRunning):
		return http.StatusConflict, err.Error()
	case errors.Is(err, aigateway.ErrRateLimited):
		return http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."
	case errors.Is(err, aigateway.ErrQuotaExhausted):
		return http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue."
	case errors.Is(err, aigateway.ErrUnavailable):
		return http.StatusInternalServerError, "AI service temporarily unavailable."
	case errors.Is(err, ops.ErrNoRepository):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

type unknownActionError struct{ action string }

func (e *unknownActionError) Error() string { return "unknown action: " + e.action }

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
