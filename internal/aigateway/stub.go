package aigateway

import (
	"context"
	"fmt"
	"math"

	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Stub answers every action offline with rule-engine heuristics. Output is
// a pure function of the input catalog.
type Stub struct{}

// Name returns "stub".
func (Stub) Name() string { return "stub" }

// Run builds the payload for action.
func (Stub) Run(ctx context.Context, action Action, products []models.Product) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch action {
	case ActionOptimize:
		return normalize(stubOptimize(products))
	case ActionForecast:
		return normalize(stubForecast(products))
	case ActionAnomaly:
		return normalize(stubAnomaly(products))
	case ActionRecommendations:
		return normalize(stubRecommendations(products))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

type priceAdjustment struct {
	ProductID      string  `json:"productId"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"currentPrice"`
	SuggestedPrice float64 `json:"suggestedPrice"`
	Reason         string  `json:"reason"`
}

type restockAlert struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	CurrentStock   int    `json:"currentStock"`
	SuggestedOrder int    `json:"suggestedOrder"`
	Urgency        string `json:"urgency"`
}

type optimizeResult struct {
	Score            int               `json:"score"`
	PriceAdjustments []priceAdjustment `json:"priceAdjustments"`
	RestockAlerts    []restockAlert    `json:"restockAlerts"`
	Recommendations  []string          `json:"recommendations"`
	Summary          string            `json:"summary"`
}

func stubOptimize(products []models.Product) optimizeResult {
	r := optimizeResult{PriceAdjustments: []priceAdjustment{}, RestockAlerts: []restockAlert{}, Recommendations: []string{}}
	for _, p := range products {
		if suggested, err := pricing.AdjustedPrice(p.BasePrice, p.DemandLevel); err == nil && suggested != p.CurrentPrice {
			r.PriceAdjustments = append(r.PriceAdjustments, priceAdjustment{
				ProductID:      p.ID,
				Name:           p.Name,
				CurrentPrice:   p.CurrentPrice,
				SuggestedPrice: suggested,
				Reason:         fmt.Sprintf("%s demand relative to base price %s", p.DemandLevel, pricing.FormatPrice(p.BasePrice)),
			})
		}
		if p.BelowThreshold() {
			urgency := "warning"
			if p.Stock*2 < p.ReorderLevel || p.DemandLevel == models.DemandHigh {
				urgency = "critical"
			}
			r.RestockAlerts = append(r.RestockAlerts, restockAlert{
				ProductID:      p.ID,
				Name:           p.Name,
				CurrentStock:   p.Stock,
				SuggestedOrder: pricing.RestockQuantity(p.ReorderLevel),
				Urgency:        urgency,
			})
		}
	}
	r.Score = 100 - 10*len(r.RestockAlerts) - 5*len(r.PriceAdjustments)
	if r.Score < 0 {
		r.Score = 0
	}
	if len(r.RestockAlerts) > 0 {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Place purchase orders for %d under-stocked item(s) today", len(r.RestockAlerts)))
	}
	if len(r.PriceAdjustments) > 0 {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Align %d price(s) with current demand signals", len(r.PriceAdjustments)))
	}
	for _, p := range products {
		if pricing.SlowMover(p) {
			r.Recommendations = append(r.Recommendations, fmt.Sprintf("Run a markdown on %s to clear excess stock", p.Name))
		}
	}
	r.Recommendations = append(r.Recommendations, "Review reorder levels weekly against the demand forecast")
	r.Summary = fmt.Sprintf("Optimization score %d: %d restock alert(s), %d price adjustment(s).", r.Score, len(r.RestockAlerts), len(r.PriceAdjustments))
	return r
}

type weeklyForecast struct {
	ProductID       string  `json:"productId"`
	Name            string  `json:"name"`
	PredictedDemand int     `json:"predictedDemand"`
	Confidence      float64 `json:"confidence"`
	Trend           string  `json:"trend"`
}

type topMover struct {
	Name   string `json:"name"`
	Change string `json:"change"`
}

type forecastResult struct {
	WeeklyForecast  []weeklyForecast `json:"weeklyForecast"`
	TopMovers       []topMover       `json:"topMovers"`
	Summary         string           `json:"summary"`
	ConfidenceScore int              `json:"confidenceScore"`
}

var trendFactor = map[string]float64{models.DemandHigh: 1.1, models.DemandMedium: 1.0, models.DemandLow: 0.9}

func stubForecast(products []models.Product) forecastResult {
	r := forecastResult{WeeklyForecast: []weeklyForecast{}, TopMovers: []topMover{}, ConfidenceScore: 80}
	total := 0
	for _, p := range products {
		trend := "stable"
		switch p.DemandLevel {
		case models.DemandHigh:
			trend = "up"
			r.TopMovers = append(r.TopMovers, topMover{Name: p.Name, Change: "+10%"})
		case models.DemandLow:
			trend = "down"
			r.TopMovers = append(r.TopMovers, topMover{Name: p.Name, Change: "-10%"})
		}
		factor, ok := trendFactor[p.DemandLevel]
		if !ok {
			factor = 1
		}
		predicted := int(math.Round(float64(p.DemandForecast*7) * factor))
		total += predicted
		r.WeeklyForecast = append(r.WeeklyForecast, weeklyForecast{
			ProductID:       p.ID,
			Name:            p.Name,
			PredictedDemand: predicted,
			Confidence:      0.8,
			Trend:           trend,
		})
	}
	r.Summary = fmt.Sprintf("Projected %d units across %d products next week.", total, len(products))
	return r
}

type anomaly struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

type anomalyResult struct {
	Anomalies []anomaly `json:"anomalies"`
	RiskScore int       `json:"riskScore"`
	Summary   string    `json:"summary"`
}

func stubAnomaly(products []models.Product) anomalyResult {
	r := anomalyResult{Anomalies: []anomaly{}}
	for _, p := range products {
		if p.BasePrice > 0 {
			dev := (p.CurrentPrice - p.BasePrice) / p.BasePrice * 100
			if math.Abs(dev) > 20 {
				r.Anomalies = append(r.Anomalies, anomaly{p.ID, p.Name, "price", "high",
					fmt.Sprintf("Price is %.0f%% away from base", dev)})
			} else if math.Abs(dev) > 10 {
				r.Anomalies = append(r.Anomalies, anomaly{p.ID, p.Name, "price", "medium",
					fmt.Sprintf("Price is %.0f%% away from base", dev)})
			}
		}
		switch {
		case p.BelowThreshold() && p.DemandLevel == models.DemandHigh:
			r.Anomalies = append(r.Anomalies, anomaly{p.ID, p.Name, "demand", "high",
				fmt.Sprintf("High demand with only %d units against a reorder level of %d", p.Stock, p.ReorderLevel)})
		case p.BelowThreshold():
			r.Anomalies = append(r.Anomalies, anomaly{p.ID, p.Name, "stock", "medium",
				fmt.Sprintf("%d units is below the reorder level of %d", p.Stock, p.ReorderLevel)})
		case pricing.SlowMover(p):
			r.Anomalies = append(r.Anomalies, anomaly{p.ID, p.Name, "demand", "low",
				"Low demand with more than twice the reorder level on hand"})
		}
	}
	for _, a := range r.Anomalies {
		switch a.Severity {
		case "high":
			r.RiskScore += 25
		case "medium":
			r.RiskScore += 10
		default:
			r.RiskScore += 5
		}
	}
	if r.RiskScore > 100 {
		r.RiskScore = 100
	}
	r.Summary = fmt.Sprintf("%d anomaly(ies) found, risk score %d.", len(r.Anomalies), r.RiskScore)
	return r
}

type bundle struct {
	Products []string `json:"products"`
	Discount string   `json:"discount"`
	Reason   string   `json:"reason"`
}

type markdown struct {
	Name              string `json:"name"`
	SuggestedDiscount string `json:"suggestedDiscount"`
	Reason            string `json:"reason"`
}

type upsell struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

type recommendationsResult struct {
	Bundles   []bundle   `json:"bundles"`
	Markdowns []markdown `json:"markdowns"`
	Upsells   []upsell   `json:"upsells"`
	Seasonal  []string   `json:"seasonal"`
	Summary   string     `json:"summary"`
}

func stubRecommendations(products []models.Product) recommendationsResult {
	r := recommendationsResult{Bundles: []bundle{}, Markdowns: []markdown{}, Upsells: []upsell{}}
	byCategory := map[string][]string{}
	var order []string
	for _, p := range products {
		if _, ok := byCategory[p.Category]; !ok {
			order = append(order, p.Category)
		}
		byCategory[p.Category] = append(byCategory[p.Category], p.Name)
		if pricing.SlowMover(p) {
			r.Markdowns = append(r.Markdowns, markdown{p.Name, "15%", "Slow mover holding excess stock"})
		}
		if p.DemandLevel == models.DemandHigh && !p.BelowThreshold() {
			r.Upsells = append(r.Upsells, upsell{p.Name, "Feature a premium variant at eye level"})
		}
	}
	for _, c := range order {
		if names := byCategory[c]; len(names) >= 2 {
			r.Bundles = append(r.Bundles, bundle{names[:2], "10%", "Frequently bought together in " + c})
		}
	}
	r.Seasonal = []string{
		"Stock up on beverages ahead of warmer weekends",
		"Promote fresh produce bundles at the start of each week",
	}
	r.Summary = fmt.Sprintf("%d bundle(s), %d markdown(s), %d upsell(s) suggested.", len(r.Bundles), len(r.Markdowns), len(r.Upsells))
	return r
}
