package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/matcher"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

func (a *App) handleQueries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		qs := a.Market.Queries()
		if status := r.URL.Query().Get("status"); status != "" {
			filtered := qs[:0]
			for _, q := range qs {
				if q.Status == status {
					filtered = append(filtered, q)
				}
			}
			qs = filtered
		}
		writeJSON(w, nonNil(qs))
	case http.MethodPost:
		var body struct {
			CustomerName string `json:"customer_name"`
			Query        string `json:"query"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
		name, text := strings.TrimSpace(body.CustomerName), strings.TrimSpace(body.Query)
		if name == "" || text == "" {
			writeJSONError(w, http.StatusBadRequest, "customer_name and query required")
			return
		}
		q, err := a.Market.AddQuery(matcher.Submit(name, text))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, q)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleQuery serves /queries/{id} and POST /queries/{id}/resolve.
func (a *App) handleQuery(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/queries/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	switch {
	case id != "" && len(parts) == 1:
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		q, err := a.Market.Query(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, q)
	case id != "" && len(parts) == 2 && parts[1] == "resolve":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		q, err := a.Market.ResolveQuery(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, q)
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		logs := a.Market.Logs()
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			if n < len(logs) {
				logs = logs[:n]
			}
		}
		writeJSON(w, nonNil(logs))
	case http.MethodPost:
		var body struct {
			Agent   string `json:"agent"`
			Action  string `json:"action"`
			Details string `json:"details"`
			Status  string `json:"status"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
		l, err := a.Market.AddAgentLog(models.AgentLog{Agent: body.Agent, Action: body.Action, Details: body.Details, Status: body.Status})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, l)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleSimulation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"simulating": a.Market.Simulating()})
	case http.MethodPost:
		var body struct {
			Simulating *bool `json:"simulating"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if body.Simulating == nil {
			writeJSONError(w, http.StatusBadRequest, "simulating required")
			return
		}
		if err := a.Market.SetSimulating(*body.Simulating); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"simulating": a.Market.Simulating()})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
