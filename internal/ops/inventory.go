package ops

import (
	"context"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// LowStock returns products below their reorder level.
func (s *Service) LowStock() []models.Product {
	return filter(s.store.Products(), models.Product.BelowThreshold)
}

// SlowMovers returns low-demand products holding more than twice their reorder level.
func (s *Service) SlowMovers() []models.Product {
	return filter(s.store.Products(), pricing.SlowMover)
}

// WarehouseScan logs a scan, pauses, then reports the products below threshold.
func (s *Service) WarehouseScan(ctx context.Context) ([]models.Product, error) {
	s.log(models.AgentInventory, "WAREHOUSE_SCAN", "Initiating real-time warehouse scan...", models.LogInfo)
	if err := s.wait(ctx, s.scanDelay); err != nil {
		return nil, err
	}
	products := s.store.Products()
	low := filter(products, models.Product.BelowThreshold)
	status := models.LogSuccess
	if len(low) > 0 {
		status = models.LogWarning
	}
	s.log(models.AgentInventory, "SCAN_COMPLETE",
		fmt.Sprintf("Scan complete: %d SKUs verified, %d below threshold", len(products), len(low)), status)
	return low, nil
}

// AutoReorder restocks every product below threshold by twice its reorder
// level and returns how many were reordered.
func (s *Service) AutoReorder() (int, error) {
	n := 0
	for _, p := range s.LowStock() {
		qty := pricing.RestockQuantity(p.ReorderLevel)
		if qty <= 0 {
			continue
		}
		if _, err := s.store.ReorderProduct(p.ID, qty); err != nil {
			return n, fmt.Errorf("reorder %s: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}

func filter(products []models.Product, keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
