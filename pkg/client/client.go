// Package client provides a Go SDK for the Aura HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Client calls the Aura HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:4870"
	APIKey     string       // optional; sent as X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL (e.g. "http://localhost:4870").
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

// Error is a non-2xx API response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health returns the /health response (ok: true).
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.OK, err
}

// Config returns the /config response.
func (c *Client) Config(ctx context.Context) (*models.Config, error) {
	var out models.Config
	err := c.doJSON(ctx, http.MethodGet, "/config", nil, &out)
	return &out, err
}

// Bootstrap returns the full /bootstrap payload.
func (c *Client) Bootstrap(ctx context.Context) (*models.Bootstrap, error) {
	var out models.Bootstrap
	err := c.doJSON(ctx, http.MethodGet, "/bootstrap", nil, &out)
	return &out, err
}

// Products lists the catalog in seed order.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := c.doJSON(ctx, http.MethodGet, "/products", nil, &out)
	return out, err
}

// Product returns one product.
func (c *Client) Product(ctx context.Context, id string) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodGet, productPath(id, ""), nil, &out)
	return &out, err
}

func productPath(id, action string) string {
	p := "/products/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

// Reorder adds quantity units to a product's stock.
func (c *Client) Reorder(ctx context.Context, id string, quantity int) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodPost, productPath(id, "reorder"), map[string]int{"quantity": quantity}, &out)
	return &out, err
}

// AdjustPrice reprices a product from its base price for a demand level.
func (c *Client) AdjustPrice(ctx context.Context, id, demandLevel string) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodPost, productPath(id, "adjust"), map[string]string{"demand_level": demandLevel}, &out)
	return &out, err
}

// SetPrice overrides the current price.
func (c *Client) SetPrice(ctx context.Context, id string, price float64) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodPost, productPath(id, "price"), map[string]float64{"price": price}, &out)
	return &out, err
}

// ApplyPromotion discounts one product by pct percent.
func (c *Client) ApplyPromotion(ctx context.Context, id string, pct float64) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodPost, productPath(id, "promotion"), map[string]float64{"discount_percent": pct}, &out)
	return &out, err
}

// UpdateStock overwrites a product's stock count.
func (c *Client) UpdateStock(ctx context.Context, id string, stock int) (*models.Product, error) {
	var out models.Product
	err := c.doJSON(ctx, http.MethodPut, productPath(id, "stock"), map[string]int{"stock": stock}, &out)
	return &out, err
}

// Queries lists customer queries, newest first. An empty status lists all.
func (c *Client) Queries(ctx context.Context, status string) ([]models.CustomerQuery, error) {
	path := "/queries"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []models.CustomerQuery
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SubmitQuery records a customer question; the server answers it from its FAQ table.
func (c *Client) SubmitQuery(ctx context.Context, customerName, query string) (*models.CustomerQuery, error) {
	var out models.CustomerQuery
	err := c.doJSON(ctx, http.MethodPost, "/queries", map[string]string{"customer_name": customerName, "query": query}, &out)
	return &out, err
}

// ResolveQuery marks a query resolved.
func (c *Client) ResolveQuery(ctx context.Context, id string) (*models.CustomerQuery, error) {
	var out models.CustomerQuery
	err := c.doJSON(ctx, http.MethodPost, "/queries/"+url.PathEscape(id)+"/resolve", nil, &out)
	return &out, err
}

// Logs returns the audit tape, newest first (limit 0 = all retained).
func (c *Client) Logs(ctx context.Context, limit int) ([]models.AgentLog, error) {
	path := "/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.AgentLog
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// AddLog appends an entry to the audit tape.
func (c *Client) AddLog(ctx context.Context, l models.AgentLog) (*models.AgentLog, error) {
	var out models.AgentLog
	err := c.doJSON(ctx, http.MethodPost, "/logs", map[string]string{
		"agent": l.Agent, "action": l.Action, "details": l.Details, "status": l.Status,
	}, &out)
	return &out, err
}

// SetSimulating sets the simulation flag and returns the stored value.
func (c *Client) SetSimulating(ctx context.Context, v bool) (bool, error) {
	var out struct {
		Simulating bool `json:"simulating"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/simulation", map[string]bool{"simulating": v}, &out)
	return out.Simulating, err
}

// Monitoring returns the dashboard rollup.
func (c *Client) Monitoring(ctx context.Context) (*models.DashboardMetrics, error) {
	var out models.DashboardMetrics
	err := c.doJSON(ctx, http.MethodGet, "/monitoring", nil, &out)
	return &out, err
}

// RunScenario runs the demo script and waits for its summary.
func (c *Client) RunScenario(ctx context.Context) (*models.ScenarioSummary, error) {
	var out models.ScenarioSummary
	err := c.doJSON(ctx, http.MethodPost, "/scenario/run?wait=true", nil, &out)
	return &out, err
}

// StartScenario starts the demo script and returns its expected duration in milliseconds.
func (c *Client) StartScenario(ctx context.Context) (expectedMS int64, err error) {
	var out struct {
		ExpectedMS int64 `json:"expected_ms"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/scenario/run", nil, &out)
	return out.ExpectedMS, err
}

func (c *Client) opList(ctx context.Context, op string) ([]models.Product, error) {
	var out []models.Product
	err := c.doJSON(ctx, http.MethodGet, "/ops/"+op, nil, &out)
	return out, err
}

// LowStock lists products below their reorder level.
func (c *Client) LowStock(ctx context.Context) ([]models.Product, error) {
	return c.opList(ctx, "low-stock")
}

// SlowMovers lists low-demand products holding excess stock.
func (c *Client) SlowMovers(ctx context.Context) ([]models.Product, error) {
	return c.opList(ctx, "slow-movers")
}

// LowMargin lists products with an estimated margin under 20%.
func (c *Client) LowMargin(ctx context.Context) ([]models.Product, error) {
	return c.opList(ctx, "low-margin")
}

// Scan runs a warehouse scan and returns the low-stock items it found.
func (c *Client) Scan(ctx context.Context) ([]models.Product, error) {
	var out struct {
		LowStock []models.Product `json:"low_stock"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ops/scan", nil, &out)
	return out.LowStock, err
}

func (c *Client) opCount(ctx context.Context, op, key string, body any) (int, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodPost, "/ops/"+op, body, &out); err != nil {
		return 0, err
	}
	n, _ := out[key].(float64)
	return int(n), nil
}

// AutoReorder restocks every low-stock product and returns how many.
func (c *Client) AutoReorder(ctx context.Context) (int, error) {
	return c.opCount(ctx, "auto-reorder", "reordered", nil)
}

// OptimizePrices reprices products still at base price and returns how many.
func (c *Client) OptimizePrices(ctx context.Context) (int, error) {
	return c.opCount(ctx, "optimize", "adjusted", nil)
}

// LaunchPromotion discounts every low-demand product by pct percent.
func (c *Client) LaunchPromotion(ctx context.Context, pct float64) (int, error) {
	return c.opCount(ctx, "promotion", "discounted", map[string]float64{"discount_percent": pct})
}

// Backup snapshots the market into the database.
func (c *Client) Backup(ctx context.Context) (*models.Backup, error) {
	var out models.Backup
	err := c.doJSON(ctx, http.MethodPost, "/ops/backup", nil, &out)
	return &out, err
}

// Backups lists stored snapshots, newest first (limit 0 = server default).
func (c *Client) Backups(ctx context.Context, limit int) ([]models.Backup, error) {
	path := "/ops/backups"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.Backup
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Sync upserts the whole market into the database.
func (c *Client) Sync(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/ops/sync", nil, nil)
}

// ToggleSimulation flips the simulation flag and returns the new value.
func (c *Client) ToggleSimulation(ctx context.Context) (bool, error) {
	var out struct {
		Simulating bool `json:"simulating"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ops/simulation/toggle", nil, &out)
	return out.Simulating, err
}

// AI runs an analysis action (optimize, forecast, anomaly, recommendations).
// A nil products slice analyzes the live catalog.
func (c *Client) AI(ctx context.Context, action string, products []models.Product) (*models.AIResponse, error) {
	var body any
	if products != nil {
		body = map[string]any{"products": products}
	}
	var out models.AIResponse
	err := c.doJSON(ctx, http.MethodPost, "/ai/"+url.PathEscape(action), body, &out)
	return &out, err
}
