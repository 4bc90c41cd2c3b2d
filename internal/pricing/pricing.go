// Package pricing holds the demand-driven price and restock rules. All
// currency math is done in decimal and rounded half away from zero to cents.
package pricing

import (
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	multiplierHigh   = decimal.RequireFromString("1.15")
	multiplierMedium = decimal.NewFromInt(1)
	multiplierLow    = decimal.RequireFromString("0.85")

	hundred     = decimal.NewFromInt(100)
	costRatio   = decimal.RequireFromString("0.6")
	lowMarginAt = decimal.NewFromInt(20)
)

// Multiplier returns the fixed price multiplier for a demand level.
func Multiplier(level string) (decimal.Decimal, error) {
	switch level {
	case models.DemandHigh:
		return multiplierHigh, nil
	case models.DemandMedium:
		return multiplierMedium, nil
	case models.DemandLow:
		return multiplierLow, nil
	}
	return decimal.Zero, fmt.Errorf("unknown demand level %q", level)
}

// Round rounds a price to cents, half away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AdjustedPrice is basePrice × multiplier(level), rounded. It never looks at
// the current price, so repeated adjustments do not accumulate.
func AdjustedPrice(basePrice float64, level string) (float64, error) {
	m, err := Multiplier(level)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(basePrice).Mul(m).Round(2).InexactFloat64(), nil
}

// PromotionPrice discounts the current price by pct percent and rounds.
// Successive promotions compound.
func PromotionPrice(currentPrice, pct float64) float64 {
	factor := hundred.Sub(decimal.NewFromFloat(pct)).Div(hundred)
	return decimal.NewFromFloat(currentPrice).Mul(factor).Round(2).InexactFloat64()
}

// RestockQuantity is the conventional purchase order size: twice the reorder level.
func RestockQuantity(reorderLevel int) int {
	return reorderLevel * 2
}

// MarginPercent estimates gross margin assuming unit cost is 60% of base price.
// A zero current price yields a margin of -100.
func MarginPercent(p models.Product) float64 {
	cur := decimal.NewFromFloat(p.CurrentPrice)
	if cur.IsZero() {
		return -100
	}
	cost := decimal.NewFromFloat(p.BasePrice).Mul(costRatio)
	return cur.Sub(cost).Div(cur).Mul(hundred).Round(2).InexactFloat64()
}

// LowMargin reports whether the estimated margin is under 20%.
func LowMargin(p models.Product) bool {
	return decimal.NewFromFloat(MarginPercent(p)).LessThan(lowMarginAt)
}

// AtBasePrice reports whether the product is still priced at its base price.
func AtBasePrice(p models.Product) bool {
	return decimal.NewFromFloat(p.CurrentPrice).Equal(decimal.NewFromFloat(p.BasePrice))
}

// Optimizable reports whether a price optimization pass should touch p:
// still at base price and with a non-medium demand signal.
func Optimizable(p models.Product) bool {
	return AtBasePrice(p) && p.DemandLevel != models.DemandMedium
}

// SlowMover reports low-demand products holding more than twice their reorder level.
func SlowMover(p models.Product) bool {
	return p.DemandLevel == models.DemandLow && p.Stock > p.ReorderLevel*2
}

// Revenue is Σ currentPrice × demandForecast, rounded to cents.
func Revenue(products []models.Product) float64 {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(decimal.NewFromFloat(p.CurrentPrice).Mul(decimal.NewFromInt(int64(p.DemandForecast))))
	}
	return total.Round(2).InexactFloat64()
}

// FormatPrice renders a price as dollars with two decimals.
func FormatPrice(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}
