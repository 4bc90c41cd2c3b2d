package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/notify"
	"github.com/charbel-alt28/aura-retail-ai/internal/ops"
	"github.com/charbel-alt28/aura-retail-ai/internal/otel"
	"github.com/charbel-alt28/aura-retail-ai/internal/scenario"
	"github.com/charbel-alt28/aura-retail-ai/internal/store"
	"github.com/charbel-alt28/aura-retail-ai/internal/store/postgres"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func newApp(opts ServerOptions) (*App, error) {
	seed := opts.Catalog
	if seed == nil {
		seed = market.SeedCatalog()
	}

	var st store.Store
	var marketOpts []market.Option
	if !opts.InMemory {
		var err error
		if opts.DBDriver == "postgres" {
			st, err = postgres.Open(opts.DBURL)
		} else {
			st, err = store.Open(opts.Home)
		}
		if err != nil {
			return nil, err
		}
		seed, marketOpts, err = store.Restore(context.Background(), st, seed)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	m := market.NewStore(seed, marketOpts...)
	var opsOpts []ops.Option
	if st != nil {
		opsOpts = append(opsOpts, ops.WithRepository(st))
	}
	var runnerOpts []scenario.Option
	if opts.ScenarioDelays != nil {
		runnerOpts = append(runnerOpts, scenario.WithDelays(*opts.ScenarioDelays))
		if *opts.ScenarioDelays == (scenario.Delays{}) {
			opsOpts = append(opsOpts, ops.WithDelays(0, 0))
		}
	}
	gw := opts.Gateway
	if gw == nil {
		gw = aigateway.Stub{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Hub:      NewSSEHub(),
		Store:    st,
		Market:   m,
		Ops:      ops.New(m, opsOpts...),
		Runner:   scenario.NewRunner(m, runnerOpts...),
		Gateway:  gw,
		Notifier: notifier,
		Home:     opts.Home,
		version:  opts.Version,
		baseCtx:  ctx,
		cancel:   cancel,
		aiLimits: newAILimiter(opts.AIRatePerMin, opts.AIBurst),
	}
	if st != nil {
		app.mirror = store.NewMirror(st, m)
	}
	app.unsub = m.Subscribe(app.onEvent)
	return app, nil
}

// onEvent fans store events out to SSE clients and records store metrics.
func (a *App) onEvent(ev market.Event) {
	if ev.Log != nil {
		otel.RecordStoreOp(context.Background(), ev.Log.Action, ev.Log.Agent, ev.Log.Status)
	}
	a.Hub.Publish(ev.Type, ev)
}

// Close stops running jobs, flushes the mirror and closes the database.
// Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		a.unsub()
		if a.mirror != nil {
			a.mirror.Close()
		}
		if a.Store != nil {
			_ = a.Store.Close()
		}
	})
}

// StartScenario launches the demo sequencer in the background. The run is
// tied to the app's lifetime rather than the caller's request.
func (a *App) StartScenario() (<-chan scenario.Outcome, error) {
	started := time.Now()
	ctx, span := otel.Tracer().Start(a.baseCtx, "scenario.run")
	out, err := a.Runner.Start(ctx)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	done := make(chan scenario.Outcome, 1)
	go func() {
		res := <-out
		a.finishScenario(res, time.Since(started))
		span.SetAttributes(
			attribute.Int("scenario.restocked", res.Summary.Restocked),
			attribute.Int("scenario.prices_adjusted", res.Summary.PricesAdjusted),
			attribute.Int("scenario.queries_resolved", res.Summary.QueriesResolved),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
		done <- res
	}()
	return done, nil
}

// RunScenario runs the sequencer and blocks until it finishes.
func (a *App) RunScenario(ctx context.Context) (models.ScenarioSummary, error) {
	done, err := a.StartScenario()
	if err != nil {
		return models.ScenarioSummary{}, err
	}
	select {
	case res := <-done:
		return res.Summary, res.Err
	case <-ctx.Done():
		return models.ScenarioSummary{}, ctx.Err()
	}
}

func (a *App) finishScenario(res scenario.Outcome, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(res.Err, context.Canceled):
		outcome = "cancelled"
	case res.Err != nil:
		outcome = "error"
	}
	otel.RecordScenarioRun(context.Background(), outcome, elapsed)
	ev := map[string]any{"type": "scenario_finished", "outcome": outcome}
	if res.Err == nil {
		ev["summary"] = res.Summary
	}
	a.Hub.Publish("scenario_finished", ev)
	if res.Err != nil {
		return
	}
	a.notify("scenario.finished",
		fmt.Sprintf("Demo complete: %d items restocked, %d prices optimized, %d queries resolved",
			res.Summary.Restocked, res.Summary.PricesAdjusted, res.Summary.QueriesResolved),
		map[string]string{
			"restocked":        strconv.Itoa(res.Summary.Restocked),
			"prices_adjusted":  strconv.Itoa(res.Summary.PricesAdjusted),
			"queries_resolved": strconv.Itoa(res.Summary.QueriesResolved),
		})
}

// Scan runs a warehouse scan and notifies when items are low.
func (a *App) Scan(ctx context.Context) ([]models.Product, error) {
	low, err := a.Ops.WarehouseScan(ctx)
	if err != nil {
		return nil, err
	}
	if len(low) > 0 {
		names := make([]string, 0, len(low))
		for _, p := range low {
			names = append(names, p.Name)
		}
		a.notify("scan.low_stock", fmt.Sprintf("%d item(s) below reorder threshold: %v", len(low), names),
			map[string]string{"count": strconv.Itoa(len(low))})
	}
	return low, nil
}

// Backup snapshots the market and notifies with the result.
func (a *App) Backup(ctx context.Context) (models.Backup, error) {
	b, err := a.Ops.Backup(ctx)
	if err != nil {
		a.notify("backup.failed", "Database snapshot failed: "+err.Error(), nil)
		return models.Backup{}, err
	}
	a.notify("backup.done", fmt.Sprintf("Database snapshot %s: %d products, %d queries, %d log entries", b.ID, b.ProductCount, b.QueryCount, b.LogCount),
		map[string]string{"id": b.ID})
	return b, nil
}

// RunAI calls the gateway with the live catalog unless products is non-nil.
func (a *App) RunAI(ctx context.Context, action aigateway.Action, products []models.Product) (aigateway.Result, error) {
	if products == nil {
		products = a.Market.Products()
	}
	ctx, span := otel.Tracer().Start(ctx, "ai."+string(action),
		trace.WithAttributes(attribute.String("ai.gateway", a.Gateway.Name()), attribute.Int("ai.products", len(products))))
	defer span.End()
	start := time.Now()
	res, err := a.Gateway.Run(ctx, action, products)
	outcome := "ok"
	if err != nil {
		outcome = aiOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		slog.Warn("ai call failed", "action", action, "gateway", a.Gateway.Name(), "err", err)
	}
	otel.RecordAICall(ctx, string(action), outcome, time.Since(start))
	return res, err
}

func aiOutcome(err error) string {
	switch {
	case errors.Is(err, aigateway.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, aigateway.ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, aigateway.ErrUnavailable):
		return "unavailable"
	}
	return "error"
}

func (a *App) notify(event, text string, fields map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Notifier.Broadcast(ctx, notify.Message{Event: event, Text: text, Fields: fields})
}
