package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/internal/matcher"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

func TestHandlers_products(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var p models.Product
	if code := do(t, http.MethodPost, ts.URL+"/products/6/reorder", `{"quantity":120}`, &p); code != http.StatusOK {
		t.Fatalf("reorder status=%d", code)
	}
	if p.Name != "Apples" || p.Stock != 165 {
		t.Fatalf("reorder: got %+v", p)
	}

	var e errorBody
	if code := do(t, http.MethodPost, ts.URL+"/products/6/reorder", `{"quantity":0}`, &e); code != http.StatusBadRequest {
		t.Fatalf("zero quantity status=%d", code)
	}
	if e.Error != "quantity must be positive" {
		t.Fatalf("zero quantity error: %q", e.Error)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/6/reorder", `{"quantity":9223372036854775807}`, &e); code != http.StatusBadRequest {
		t.Fatalf("overflowing quantity status=%d", code)
	}
	if code := do(t, http.MethodGet, ts.URL+"/products/6", "", &p); code != http.StatusOK || p.Stock != 165 {
		t.Fatalf("stock after overflow: status=%d %+v", code, p)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/99/reorder", `{"quantity":5}`, &e); code != http.StatusNotFound {
		t.Fatalf("unknown product status=%d", code)
	}
	if e.Error != "product not found" {
		t.Fatalf("unknown product error: %q", e.Error)
	}
	if code := do(t, http.MethodGet, ts.URL+"/products/99", "", nil); code != http.StatusNotFound {
		t.Fatalf("GET unknown product status=%d", code)
	}

	if code := do(t, http.MethodPost, ts.URL+"/products/4/adjust", `{"demand_level":"high"}`, &p); code != http.StatusOK {
		t.Fatalf("adjust status=%d", code)
	}
	if p.CurrentPrice != 6.90 || p.DemandLevel != models.DemandHigh {
		t.Fatalf("adjust: got %+v", p)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/4/adjust", `{"demand_level":"extreme"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad demand level status=%d", code)
	}

	if code := do(t, http.MethodPost, ts.URL+"/products/4/price", `{}`, &e); code != http.StatusBadRequest || e.Error != "price required" {
		t.Fatalf("missing price: status=%d error=%q", code, e.Error)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/4/price", `{"price":5.25}`, &p); code != http.StatusOK || p.CurrentPrice != 5.25 {
		t.Fatalf("set price: status=%d price=%v", code, p.CurrentPrice)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/4/price", `{"price":-1}`, nil); code != http.StatusBadRequest {
		t.Fatalf("negative price status=%d", code)
	}

	if code := do(t, http.MethodPost, ts.URL+"/products/3/promotion", "", &p); code != http.StatusOK {
		t.Fatalf("promotion status=%d", code)
	}
	if p.CurrentPrice != 3.40 {
		t.Fatalf("default 15%% promotion on Eggs: got %v", p.CurrentPrice)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/3/promotion", `{"discount_percent":120}`, nil); code != http.StatusBadRequest {
		t.Fatalf("out of range discount status=%d", code)
	}

	if code := do(t, http.MethodPut, ts.URL+"/products/1/stock", `{"stock":10}`, &p); code != http.StatusOK || p.Stock != 10 {
		t.Fatalf("update stock: status=%d stock=%d", code, p.Stock)
	}
	if code := do(t, http.MethodPut, ts.URL+"/products/1/stock", `{"stock":-3}`, nil); code != http.StatusBadRequest {
		t.Fatalf("negative stock status=%d", code)
	}
	if code := do(t, http.MethodPost, ts.URL+"/products/1/stock", `{"stock":3}`, nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("POST stock status=%d", code)
	}
}

func TestHandlers_queries(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var q models.CustomerQuery
	if code := do(t, http.MethodPost, ts.URL+"/queries", `{"customer_name":"Ana","query":"What are your store HOURS?"}`, &q); code != http.StatusOK {
		t.Fatalf("POST /queries status=%d", code)
	}
	if q.ID == "" || q.Status != models.QueryResolved || q.QueryType != "hours" || q.Response != matcher.Rules[1].Response {
		t.Fatalf("matched query: got %+v", q)
	}

	var pending models.CustomerQuery
	if code := do(t, http.MethodPost, ts.URL+"/queries", `{"customer_name":"Bo","query":"Do you sell kites?"}`, &pending); code != http.StatusOK {
		t.Fatalf("POST /queries status=%d", code)
	}
	if pending.Status != models.QueryPending || pending.QueryType != models.QueryTypeGeneral || pending.Response != matcher.DefaultResponse {
		t.Fatalf("unmatched query: got %+v", pending)
	}

	var e errorBody
	if code := do(t, http.MethodPost, ts.URL+"/queries", `{"customer_name":"  ","query":"hello"}`, &e); code != http.StatusBadRequest {
		t.Fatalf("blank name status=%d", code)
	}
	if e.Error != "customer_name and query required" {
		t.Fatalf("blank name error: %q", e.Error)
	}

	var list []models.CustomerQuery
	do(t, http.MethodGet, ts.URL+"/queries?status=pending", "", &list)
	if len(list) != 1 || list[0].ID != pending.ID {
		t.Fatalf("pending filter: got %+v", list)
	}

	if code := do(t, http.MethodPost, ts.URL+"/queries/"+pending.ID+"/resolve", "", &q); code != http.StatusOK || q.Status != models.QueryResolved {
		t.Fatalf("resolve: status=%d query=%+v", code, q)
	}
	if code := do(t, http.MethodPost, ts.URL+"/queries/nope/resolve", "", nil); code != http.StatusNotFound {
		t.Fatalf("resolve unknown status=%d", code)
	}
	if code := do(t, http.MethodGet, ts.URL+"/queries/"+pending.ID, "", &q); code != http.StatusOK || q.ID != pending.ID {
		t.Fatalf("GET query: status=%d", code)
	}

	do(t, http.MethodGet, ts.URL+"/queries?status=pending", "", &list)
	if len(list) != 0 {
		t.Fatalf("pending after resolve: got %d", len(list))
	}
}

func TestHandlers_logsAndSimulation(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var l models.AgentLog
	if code := do(t, http.MethodPost, ts.URL+"/logs", `{"agent":"pricing","action":"NOTE","details":"manual note","status":"info"}`, &l); code != http.StatusOK {
		t.Fatalf("POST /logs status=%d", code)
	}
	if l.ID == "" || l.Timestamp.IsZero() {
		t.Fatalf("log entry not stamped: %+v", l)
	}
	if code := do(t, http.MethodPost, ts.URL+"/logs", `{"agent":"robot","action":"X","details":"x","status":"info"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown agent status=%d", code)
	}
	do(t, http.MethodPost, ts.URL+"/products/6/reorder", `{"quantity":1}`, nil)

	var logs []models.AgentLog
	do(t, http.MethodGet, ts.URL+"/logs?limit=1", "", &logs)
	if len(logs) != 1 || logs[0].Action != "REORDER" {
		t.Fatalf("newest log: got %+v", logs)
	}
	if code := do(t, http.MethodGet, ts.URL+"/logs?limit=-1", "", nil); code != http.StatusBadRequest {
		t.Fatalf("negative limit status=%d", code)
	}

	var sim map[string]bool
	do(t, http.MethodPost, ts.URL+"/simulation", `{"simulating":true}`, &sim)
	if !sim["simulating"] {
		t.Fatal("simulation flag not set")
	}
	if code := do(t, http.MethodPost, ts.URL+"/simulation", `{}`, nil); code != http.StatusBadRequest {
		t.Fatalf("missing flag status=%d", code)
	}
	do(t, http.MethodPost, ts.URL+"/ops/simulation/toggle", "", &sim)
	if sim["simulating"] {
		t.Fatal("toggle should clear the flag")
	}
}

func TestHandlers_ops(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var products []models.Product
	do(t, http.MethodGet, ts.URL+"/ops/low-stock", "", &products)
	if len(products) != 2 || products[0].Name != "Apples" || products[1].Name != "Chicken" {
		t.Fatalf("low stock: got %+v", products)
	}
	do(t, http.MethodGet, ts.URL+"/ops/slow-movers", "", &products)
	if len(products) != 1 || products[0].Name != "Cheese" {
		t.Fatalf("slow movers: got %+v", products)
	}
	do(t, http.MethodGet, ts.URL+"/ops/low-margin", "", &products)
	if len(products) != 0 {
		t.Fatalf("low margin: got %+v", products)
	}

	var m models.DashboardMetrics
	do(t, http.MethodGet, ts.URL+"/monitoring", "", &m)
	if m.Products != 8 || m.CriticalItems != 2 || m.StockHealth != 75 || m.Revenue != 1662.5 {
		t.Fatalf("monitoring: got %+v", m)
	}

	var scan struct {
		LowStock []models.Product `json:"low_stock"`
	}
	if code := do(t, http.MethodPost, ts.URL+"/ops/scan", "", &scan); code != http.StatusOK || len(scan.LowStock) != 2 {
		t.Fatalf("scan: status=%d low=%d", code, len(scan.LowStock))
	}

	var counts map[string]float64
	do(t, http.MethodPost, ts.URL+"/ops/auto-reorder", "", &counts)
	if counts["reordered"] != 2 {
		t.Fatalf("auto reorder: got %v", counts)
	}
	do(t, http.MethodGet, ts.URL+"/ops/low-stock", "", &products)
	if len(products) != 0 {
		t.Fatalf("low stock after reorder: got %d", len(products))
	}

	do(t, http.MethodPost, ts.URL+"/ops/optimize", "", &counts)
	if counts["adjusted"] != 5 {
		t.Fatalf("optimize: got %v", counts)
	}
	do(t, http.MethodPost, ts.URL+"/ops/promotion", `{"discount_percent":10}`, &counts)
	if counts["discounted"] != 1 || counts["discount_percent"] != 10 {
		t.Fatalf("promotion: got %v", counts)
	}
	if code := do(t, http.MethodGet, ts.URL+"/ops/scan", "", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET scan status=%d", code)
	}
}

func TestHandlers_opsWithoutRepository(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var e errorBody
	if code := do(t, http.MethodPost, ts.URL+"/ops/backup", "", &e); code != http.StatusServiceUnavailable {
		t.Fatalf("backup status=%d", code)
	}
	if e.Error != "no repository configured" {
		t.Fatalf("backup error: %q", e.Error)
	}
	if code := do(t, http.MethodGet, ts.URL+"/ops/backups", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("backups status=%d", code)
	}
	if code := do(t, http.MethodPost, ts.URL+"/ops/sync", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("sync status=%d", code)
	}
	var logs []models.AgentLog
	do(t, http.MethodGet, ts.URL+"/logs?limit=5", "", &logs)
	found := false
	for _, l := range logs {
		if l.Action == "BACKUP_FAILED" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BACKUP_FAILED on the tape: %+v", logs)
	}
}

func TestHandlers_scenario(t *testing.T) {
	t.Parallel()
	app, ts := newTestServer(t, ServerOptions{InMemory: true})

	var sum models.ScenarioSummary
	if code := do(t, http.MethodPost, ts.URL+"/scenario/run?wait=true", "", &sum); code != http.StatusOK {
		t.Fatalf("scenario status=%d", code)
	}
	if sum.Restocked != 2 || sum.PricesAdjusted != 2 || sum.QueriesResolved != 2 {
		t.Fatalf("summary: got %+v", sum)
	}
	if app.Market.Simulating() {
		t.Fatal("simulation flag should be released")
	}
	if logs := app.Market.Logs(); logs[0].Action != "SUMMARY" {
		t.Fatalf("last log: got %q", logs[0].Action)
	}

	if !app.Market.BeginSimulation() {
		t.Fatal("BeginSimulation")
	}
	var e errorBody
	if code := do(t, http.MethodPost, ts.URL+"/scenario/run", "", &e); code != http.StatusConflict {
		t.Fatalf("concurrent run status=%d", code)
	}
	if e.Error != "scenario already running" {
		t.Fatalf("conflict error: %q", e.Error)
	}
	if code := do(t, http.MethodPost, ts.URL+"/simulation", `{"simulating":false}`, &e); code != http.StatusConflict {
		t.Fatalf("clear during run status=%d", code)
	}
	if code := do(t, http.MethodPost, ts.URL+"/ops/simulation/toggle", "", &e); code != http.StatusConflict {
		t.Fatalf("toggle during run status=%d", code)
	}
	if !app.Market.Simulating() {
		t.Fatal("simulation flag released during run")
	}
	app.Market.EndSimulation()
}

func TestHandlers_scenarioAsync(t *testing.T) {
	t.Parallel()
	app, ts := newTestServer(t, ServerOptions{InMemory: true})

	var started map[string]any
	if code := do(t, http.MethodPost, ts.URL+"/scenario/run", "", &started); code != http.StatusAccepted {
		t.Fatalf("scenario status=%d", code)
	}
	if started["started"] != true {
		t.Fatalf("start response: %v", started)
	}
	deadline := time.Now().Add(5 * time.Second)
	for app.Market.Simulating() || len(app.Market.Queries()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("scenario did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandlers_ai(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var resp models.AIResponse
	if code := do(t, http.MethodPost, ts.URL+"/ai/optimize", "", &resp); code != http.StatusOK {
		t.Fatalf("ai optimize status=%d", code)
	}
	if resp.Action != "optimize" || resp.Result["score"] != 55.0 {
		t.Fatalf("ai optimize: got %+v", resp)
	}
	if code := do(t, http.MethodPost, ts.URL+"/ai/optimize", `{"products":[]}`, &resp); code != http.StatusOK {
		t.Fatalf("ai optimize with products status=%d", code)
	}
	if resp.Result["score"] != 100.0 {
		t.Fatalf("empty catalog score: got %v", resp.Result["score"])
	}

	var e errorBody
	if code := do(t, http.MethodPost, ts.URL+"/ai/teleport", "", &e); code != http.StatusBadRequest {
		t.Fatalf("unknown action status=%d", code)
	}
	if e.Error != "Unknown action: teleport" {
		t.Fatalf("unknown action error: %q", e.Error)
	}
	if code := do(t, http.MethodGet, ts.URL+"/ai/optimize", "", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET ai status=%d", code)
	}
}

func TestHandlers_aiRateLimit(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true, AIRatePerMin: 1, AIBurst: 1})

	if code := do(t, http.MethodPost, ts.URL+"/ai/forecast", "", nil); code != http.StatusOK {
		t.Fatalf("first call status=%d", code)
	}
	limited := false
	var e errorBody
	for i := 0; i < 5 && !limited; i++ {
		if code := do(t, http.MethodPost, ts.URL+"/ai/forecast", "", &e); code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("expected 429 after the bucket drained")
	}
	if e.Error != "Rate limit exceeded. Please try again in a moment." {
		t.Fatalf("rate limit error: %q", e.Error)
	}
}

type failingGateway struct{ err error }

func (failingGateway) Name() string { return "failing" }

func (g failingGateway) Run(context.Context, aigateway.Action, []models.Product) (aigateway.Result, error) {
	return nil, g.err
}

func TestHandlers_aiErrorMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{aigateway.ErrRateLimited, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment."},
		{aigateway.ErrQuotaExhausted, http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue."},
		{aigateway.ErrUnavailable, http.StatusInternalServerError, "AI service temporarily unavailable."},
	}
	for _, tc := range cases {
		_, ts := newTestServer(t, ServerOptions{InMemory: true, Gateway: failingGateway{err: tc.err}})
		var e errorBody
		if code := do(t, http.MethodPost, ts.URL+"/ai/anomaly", "", &e); code != tc.code {
			t.Fatalf("%v: status=%d", tc.err, code)
		}
		if e.Error != tc.msg {
			t.Fatalf("%v: error=%q", tc.err, e.Error)
		}
	}
}

func TestHandlers_bootstrap(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, ServerOptions{InMemory: true})

	var b models.Bootstrap
	if code := do(t, http.MethodGet, ts.URL+"/bootstrap", "", &b); code != http.StatusOK {
		t.Fatalf("bootstrap status=%d", code)
	}
	if len(b.Products) != 8 || b.Queries == nil || b.Logs == nil || b.Metrics.Products != 8 || b.Config.AIProvider != "stub" {
		t.Fatalf("bootstrap: got %+v", b)
	}
}
