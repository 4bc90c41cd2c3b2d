package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

func (a *App) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, a.Ops.Metrics())
}

// handleScenarioRun starts the demo script. ?wait=true blocks until it ends
// and returns the summary; otherwise 202 is returned immediately.
func (a *App) handleScenarioRun(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		sum, err := a.RunScenario(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, sum)
		return
	}
	if _, err := a.StartScenario(); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"started": true, "expected_ms": a.Runner.Delays().Total(len(a.Ops.LowStock()), 2).Milliseconds()})
}

// handleOps serves the bulk operations under /ops/.
func (a *App) handleOps(w http.ResponseWriter, r *http.Request) {
	op := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ops/"), "/")
	ctx := r.Context()

	switch op {
	case "low-stock":
		if allowMethod(w, r, http.MethodGet) {
			writeJSON(w, nonNil(a.Ops.LowStock()))
		}
	case "slow-movers":
		if allowMethod(w, r, http.MethodGet) {
			writeJSON(w, nonNil(a.Ops.SlowMovers()))
		}
	case "low-margin":
		if allowMethod(w, r, http.MethodGet) {
			writeJSON(w, nonNil(a.Ops.LowMargin()))
		}
	case "backups":
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		list, err := a.Ops.Backups(ctx, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nonNil(list))
	case "scan":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		low, err := a.Scan(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"low_stock": nonNil(low)})
	case "auto-reorder":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		n, err := a.Ops.AutoReorder()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"reordered": n})
	case "optimize":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		n, err := a.Ops.OptimizePrices(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"adjusted": n})
	case "promotion":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var body struct {
			DiscountPercent *float64 `json:"discount_percent"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &body); err != nil {
				writeError(w, err)
				return
			}
		}
		pct := float64(models.DefaultPromotionPercent)
		if body.DiscountPercent != nil {
			pct = *body.DiscountPercent
		}
		n, err := a.Ops.LaunchPromotion(pct)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"discounted": n, "discount_percent": pct})
	case "backup":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		b, err := a.Backup(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, b)
	case "sync":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := a.Ops.Sync(ctx); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	case "simulation/toggle":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		on, err := a.Ops.ToggleSimulation()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"simulating": on})
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}
