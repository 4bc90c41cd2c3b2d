// Package aigateway forwards a condensed catalog and an analysis action to a
// language-model backend and returns its structured answer. Nothing here
// writes to the market store.
package aigateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrQuotaExhausted = errors.New("ai credits exhausted")
	ErrUnavailable    = errors.New("ai service unavailable")
	ErrUnknownAction  = errors.New("unknown action")
)

// Action selects the analysis the backend performs.
type Action string

const (
	ActionOptimize        Action = "optimize"
	ActionForecast        Action = "forecast"
	ActionAnomaly         Action = "anomaly"
	ActionRecommendations Action = "recommendations"
)

// Actions lists every supported action.
var Actions = []Action{ActionOptimize, ActionForecast, ActionAnomaly, ActionRecommendations}

// ParseAction validates s.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
}

// Result is the backend's JSON object, passed through untouched.
type Result map[string]any

// Gateway runs one action over a product list.
type Gateway interface {
	Name() string
	Run(ctx context.Context, action Action, products []models.Product) (Result, error)
}

// ProductSummary is the per-product payload sent to the backend.
type ProductSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Stock          int     `json:"stock"`
	ReorderLevel   int     `json:"reorderLevel"`
	BasePrice      float64 `json:"basePrice"`
	CurrentPrice   float64 `json:"currentPrice"`
	DemandLevel    string  `json:"demandLevel"`
	DemandForecast int     `json:"demandForecast"`
	Category       string  `json:"category"`
}

// Condense strips products down to the fields the backend sees.
func Condense(products []models.Product) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{
			ID:             p.ID,
			Name:           p.Name,
			Stock:          p.Stock,
			ReorderLevel:   p.ReorderLevel,
			BasePrice:      p.BasePrice,
			CurrentPrice:   p.CurrentPrice,
			DemandLevel:    p.DemandLevel,
			DemandForecast: p.DemandForecast,
			Category:       p.Category,
		})
	}
	return out
}

// UserMessage renders the inventory prompt sent alongside the system prompt.
func UserMessage(products []models.Product) (string, error) {
	data, err := json.MarshalIndent(Condense(products), "", "  ")
	if err != nil {
		return "", err
	}
	return "Here is the current product inventory data:\n" + string(data), nil
}

// ParseContent decodes a JSON object reply. Anything else comes back as
// {"summary": content, "raw": true}.
func ParseContent(content string) Result {
	var r Result
	if err := json.Unmarshal([]byte(content), &r); err != nil || r == nil {
		return Result{"summary": content, "raw": true}
	}
	return r
}

// normalize converts a typed payload into the generic JSON shape
// (map[string]any, []any, float64) used on every transport.
func normalize(v any) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
