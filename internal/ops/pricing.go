package ops

import (
	"context"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/shopspring/decimal"
)

// OptimizePrices reprices every product still at base price whose demand is
// not medium, then pauses and logs the count.
func (s *Service) OptimizePrices(ctx context.Context) (int, error) {
	s.log(models.AgentPricing, "OPTIMIZE_START", "Running dynamic price optimization...", models.LogInfo)
	n := 0
	for _, p := range filter(s.store.Products(), pricing.Optimizable) {
		if _, err := s.store.AdjustPrice(p.ID, p.DemandLevel); err != nil {
			return n, fmt.Errorf("adjust %s: %w", p.ID, err)
		}
		n++
	}
	if err := s.wait(ctx, s.optimizeDelay); err != nil {
		return n, err
	}
	s.log(models.AgentPricing, "OPTIMIZE_DONE",
		fmt.Sprintf("Optimized %d product prices based on demand signals", n), models.LogSuccess)
	return n, nil
}

// LaunchPromotion discounts every low-demand product by pct percent.
func (s *Service) LaunchPromotion(pct float64) (int, error) {
	if pct < 0 || pct > 100 {
		return 0, fmt.Errorf("launch promotion: %w", market.ErrInvalidDiscount)
	}
	slow := filter(s.store.Products(), func(p models.Product) bool { return p.DemandLevel == models.DemandLow })
	for _, p := range slow {
		if _, err := s.store.ApplyPromotion(p.ID, pct); err != nil {
			return 0, fmt.Errorf("promote %s: %w", p.ID, err)
		}
	}
	s.log(models.AgentPricing, "PROMO_LAUNCH",
		fmt.Sprintf("Launched %s%% discount campaign on %d slow-moving items", decimal.NewFromFloat(pct).String(), len(slow)),
		models.LogInfo)
	return len(slow), nil
}

// LowMargin returns products whose estimated margin is below 20%.
func (s *Service) LowMargin() []models.Product {
	return filter(s.store.Products(), pricing.LowMargin)
}
