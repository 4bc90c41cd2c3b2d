// Package models provides shared types for the Aura HTTP API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import "time"

// Product is one catalog item. BasePrice is the reference price for every
// demand-driven adjustment; CurrentPrice is what the shelf shows.
type Product struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Category       string  `json:"category" yaml:"category"`
	Stock          int     `json:"stock" yaml:"stock"`
	ReorderLevel   int     `json:"reorder_level" yaml:"reorder_level"`
	DemandForecast int     `json:"demand_forecast" yaml:"demand_forecast"`
	BasePrice      float64 `json:"base_price" yaml:"base_price"`
	CurrentPrice   float64 `json:"current_price" yaml:"current_price"`
	DemandLevel    string  `json:"demand_level" yaml:"demand_level"`
}

// BelowThreshold reports whether stock has fallen under the reorder level.
func (p Product) BelowThreshold() bool {
	return p.Stock < p.ReorderLevel
}

// CustomerQuery is a submitted customer question with its generated answer.
type CustomerQuery struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	CustomerName string    `json:"customer_name"`
	QueryType    string    `json:"query_type"`
	Query        string    `json:"query"`
	Response     string    `json:"response"`
	Status       string    `json:"status"`
}

// AgentLog is one entry on the audit tape.
type AgentLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Status    string    `json:"status"`
}

// ScenarioSummary reports what one demo scenario run changed.
type ScenarioSummary struct {
	Restocked       int       `json:"restocked"`
	PricesAdjusted  int       `json:"prices_adjusted"`
	QueriesResolved int       `json:"queries_resolved"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// DashboardMetrics is the /monitoring API response.
type DashboardMetrics struct {
	Products        int     `json:"products"`
	CriticalItems   int     `json:"critical_items"`
	Revenue         float64 `json:"revenue"`
	StockHealth     int     `json:"stock_health"`
	PendingQueries  int     `json:"pending_queries"`
	ResolvedQueries int     `json:"resolved_queries"`
	Simulating      bool    `json:"simulating"`
}

// Backup is a stored snapshot of the full market state.
type Backup struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	ProductCount int       `json:"product_count"`
	QueryCount   int       `json:"query_count"`
	LogCount     int       `json:"log_count"`
}

// Snapshot is the full market state at one instant.
type Snapshot struct {
	Products   []Product       `json:"products"`
	Queries    []CustomerQuery `json:"queries"`
	Logs       []AgentLog      `json:"logs"`
	Simulating bool            `json:"simulating"`
}

// AIResponse is the /ai/{action} API response.
type AIResponse struct {
	Action string         `json:"action"`
	Result map[string]any `json:"result"`
}

// Config is the /config API response.
type Config struct {
	Home       string `json:"home,omitempty"`
	Version    string `json:"version,omitempty"`
	AIProvider string `json:"ai_provider,omitempty"`
	Simulating bool   `json:"simulating"`
}

// Bootstrap is the /bootstrap API response.
type Bootstrap struct {
	Config     Config           `json:"config"`
	Products   []Product        `json:"products"`
	Queries    []CustomerQuery  `json:"queries"`
	Logs       []AgentLog       `json:"logs"`
	Simulating bool             `json:"simulating"`
	Metrics    DashboardMetrics `json:"metrics"`
}
