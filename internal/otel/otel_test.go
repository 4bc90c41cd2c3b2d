package otel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

var testHandler http.Handler

func TestMain(m *testing.M) {
	ctx := context.Background()
	exp, err := Setup(ctx, "aura-test", "test")
	if err != nil {
		panic(err)
	}
	testHandler = exp.Handler
	if err := InitMetricsWithCatalog(ctx, func() CatalogStats {
		return CatalogStats{Products: 8, LowStock: 2, PendingQueries: 1, StockHealth: 75}
	}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func scrape(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	testHandler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: status=%d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetricsExported(t *testing.T) {
	ctx := context.Background()
	RecordStoreOp(ctx, "REORDER", "inventory", "success")
	RecordScenarioRun(ctx, "ok", 9*time.Second)
	RecordAICall(ctx, "optimize", "ok", 200*time.Millisecond)
	RecordJobRun(ctx, "scan", "ok")
	RecordSSEEvent(ctx)

	body := scrape(t)
	for _, name := range []string{
		"aura_store_operations", "aura_scenario_runs", "aura_scenario_duration_seconds",
		"aura_ai_calls", "aura_job_runs", "aura_sse_events", "aura_products", "aura_stock_health_percent",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestInitMetrics_idempotent(t *testing.T) {
	if err := InitMetrics(context.Background()); err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
}

func TestInitMetricsWithCatalog_nilFunc(t *testing.T) {
	if err := InitMetricsWithCatalog(context.Background(), nil); err != nil {
		t.Fatalf("InitMetricsWithCatalog(nil): %v", err)
	}
}

func TestAddSSEConnection_RemoveSSEConnection(t *testing.T) {
	AddSSEConnection()
	AddSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection()
	RemoveSSEConnection() // should not go negative
	sseConnectionsMu.Lock()
	defer sseConnectionsMu.Unlock()
	if sseConnections != 0 {
		t.Fatalf("sseConnections = %d", sseConnections)
	}
}

func TestMeter(t *testing.T) {
	if Meter() == nil {
		t.Fatal("Meter() returned nil")
	}
}

func TestExporter_nilShutdown(t *testing.T) {
	var e *Exporter
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown(nil): %v", err)
	}
}
