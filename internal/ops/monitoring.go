package ops

import (
	"math"

	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Metrics computes the dashboard rollup from one consistent snapshot.
func (s *Service) Metrics() models.DashboardMetrics {
	return Rollup(s.store.Snapshot())
}

// Rollup computes dashboard metrics for a snapshot. An empty catalog reports
// 100% stock health.
func Rollup(snap models.Snapshot) models.DashboardMetrics {
	m := models.DashboardMetrics{
		Products:   len(snap.Products),
		Revenue:    pricing.Revenue(snap.Products),
		Simulating: snap.Simulating,
	}
	for _, p := range snap.Products {
		if p.BelowThreshold() {
			m.CriticalItems++
		}
	}
	m.StockHealth = 100
	if m.Products > 0 {
		m.StockHealth = int(math.Round(float64(m.Products-m.CriticalItems) / float64(m.Products) * 100))
	}
	for _, q := range snap.Queries {
		switch q.Status {
		case models.QueryPending:
			m.PendingQueries++
		case models.QueryResolved:
			m.ResolvedQueries++
		}
	}
	return m
}
