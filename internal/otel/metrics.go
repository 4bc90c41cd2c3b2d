package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	storeOpsCounter     metric.Int64Counter
	scenarioRunsCounter metric.Int64Counter
	scenarioDuration    metric.Float64Histogram
	aiCallsCounter      metric.Int64Counter
	aiCallDuration      metric.Float64Histogram
	jobRunsCounter      metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseEventsCounter    metric.Int64Counter
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after Setup.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		storeOpsCounter, err = m.Int64Counter("aura_store_operations_total", metric.WithDescription("Market state mutations by operation, agent and log status"))
		if err != nil {
			return
		}
		scenarioRunsCounter, err = m.Int64Counter("aura_scenario_runs_total", metric.WithDescription("Demo scenario runs by outcome"))
		if err != nil {
			return
		}
		scenarioDuration, err = m.Float64Histogram("aura_scenario_duration_seconds", metric.WithDescription("Demo scenario wall time in seconds"))
		if err != nil {
			return
		}
		aiCallsCounter, err = m.Int64Counter("aura_ai_calls_total", metric.WithDescription("AI gateway calls by action and outcome"))
		if err != nil {
			return
		}
		aiCallDuration, err = m.Float64Histogram("aura_ai_call_duration_seconds", metric.WithDescription("AI gateway call duration in seconds"))
		if err != nil {
			return
		}
		jobRunsCounter, err = m.Int64Counter("aura_job_runs_total", metric.WithDescription("Scheduled job runs by job and outcome"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("aura_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("aura_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
	})
	return err
}

// RecordStoreOp records one market mutation, keyed by its log action.
func RecordStoreOp(ctx context.Context, op, agent, status string) {
	if storeOpsCounter == nil {
		return
	}
	storeOpsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrAgent.String(agent),
		AttrStatus.String(status),
	))
}

// RecordScenarioRun records a finished scenario run. outcome is "ok", "cancelled" or "error".
func RecordScenarioRun(ctx context.Context, outcome string, duration time.Duration) {
	if scenarioRunsCounter != nil {
		scenarioRunsCounter.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
	}
	if scenarioDuration != nil {
		scenarioDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
	}
}

// RecordAICall records one gateway call.
func RecordAICall(ctx context.Context, action, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(AttrAction.String(action), AttrOutcome.String(outcome))
	if aiCallsCounter != nil {
		aiCallsCounter.Add(ctx, 1, attrs)
	}
	if aiCallDuration != nil {
		aiCallDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordJobRun records one scheduled job execution.
func RecordJobRun(ctx context.Context, job, outcome string) {
	if jobRunsCounter != nil {
		jobRunsCounter.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(job), AttrOutcome.String(outcome)))
	}
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// CatalogStats is one observation of catalog health.
type CatalogStats struct {
	Products       int64
	LowStock       int64
	PendingQueries int64
	StockHealth    int64
}

// CatalogStatsFunc is polled on every collection.
type CatalogStatsFunc func() CatalogStats

// InitMetricsWithCatalog creates instruments and optionally registers catalog gauges.
// If stats is nil, catalog gauges are not reported.
func InitMetricsWithCatalog(ctx context.Context, stats CatalogStatsFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if stats == nil {
		return nil
	}
	m := Meter()
	products, err := m.Int64ObservableGauge("aura_products", metric.WithDescription("Products in the catalog"))
	if err != nil {
		return err
	}
	low, err := m.Int64ObservableGauge("aura_low_stock_products", metric.WithDescription("Products below their reorder level"))
	if err != nil {
		return err
	}
	pending, err := m.Int64ObservableGauge("aura_pending_queries", metric.WithDescription("Customer queries awaiting a human"))
	if err != nil {
		return err
	}
	health, err := m.Int64ObservableGauge("aura_stock_health_percent", metric.WithDescription("Share of products at or above reorder level"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(products, s.Products)
		o.ObserveInt64(low, s.LowStock)
		o.ObserveInt64(pending, s.PendingQueries)
		o.ObserveInt64(health, s.StockHealth)
		return nil
	}, products, low, pending, health)
	return err
}
