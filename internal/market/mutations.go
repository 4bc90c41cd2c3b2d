package market

import (
	"fmt"
	"math"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// queryPreviewRunes is how much of a query the audit entry quotes.
const queryPreviewRunes = 50

// ReorderProduct adds quantity units to a product's stock.
func (s *Store) ReorderProduct(id string, quantity int) (models.Product, error) {
	if quantity <= 0 {
		return models.Product{}, ErrInvalidQuantity
	}
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrProductNotFound
	}
	p := s.products[i]
	if quantity > math.MaxInt-p.Stock {
		s.mu.Unlock()
		return models.Product{}, ErrInvalidQuantity
	}
	p.Stock += quantity
	s.products[i] = p
	entry := s.appendLogLocked(models.AgentInventory, "REORDER",
		fmt.Sprintf("Reordered %d units of %s. New stock: %d", quantity, p.Name, p.Stock),
		models.LogSuccess)
	s.unlockAndEmit(productEvent(p), logEvent(entry))
	return p, nil
}

// UpdateStock overwrites a product's stock count.
func (s *Store) UpdateStock(id string, stock int) (models.Product, error) {
	if stock < 0 {
		return models.Product{}, ErrInvalidStock
	}
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrProductNotFound
	}
	p := s.products[i]
	old := p.Stock
	p.Stock = stock
	s.products[i] = p
	entry := s.appendLogLocked(models.AgentInventory, "STOCK_UPDATE",
		fmt.Sprintf("%s: %d → %d units", p.Name, old, stock),
		models.LogInfo)
	s.unlockAndEmit(productEvent(p), logEvent(entry))
	return p, nil
}

// AdjustPrice reprices a product from its base price for the given demand
// level and records that level on the product.
func (s *Store) AdjustPrice(id, level string) (models.Product, error) {
	if !models.ValidDemandLevel(level) {
		return models.Product{}, ErrInvalidDemand
	}
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrProductNotFound
	}
	p := s.products[i]
	newPrice, err := pricing.AdjustedPrice(p.BasePrice, level)
	if err != nil {
		s.mu.Unlock()
		return models.Product{}, err
	}
	old := p.CurrentPrice
	p.CurrentPrice = newPrice
	p.DemandLevel = level
	s.products[i] = p

	status := models.LogInfo
	switch level {
	case models.DemandHigh:
		status = models.LogSuccess
	case models.DemandLow:
		status = models.LogWarning
	}
	entry := s.appendLogLocked(models.AgentPricing, "PRICE_ADJUST",
		fmt.Sprintf("%s: %s → %s (%s demand)", p.Name, pricing.FormatPrice(old), pricing.FormatPrice(newPrice), level),
		status)
	s.unlockAndEmit(productEvent(p), logEvent(entry))
	return p, nil
}

// SetPrice overrides the current price without touching the demand level.
func (s *Store) SetPrice(id string, price float64) (models.Product, error) {
	if price < 0 {
		return models.Product{}, ErrInvalidPrice
	}
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrProductNotFound
	}
	p := s.products[i]
	old := p.CurrentPrice
	p.CurrentPrice = pricing.Round(price)
	s.products[i] = p
	entry := s.appendLogLocked(models.AgentPricing, "MANUAL_PRICE",
		fmt.Sprintf("%s: %s → %s (manual)", p.Name, pricing.FormatPrice(old), pricing.FormatPrice(p.CurrentPrice)),
		models.LogInfo)
	s.unlockAndEmit(productEvent(p), logEvent(entry))
	return p, nil
}

// ApplyPromotion discounts the current price by pct percent. Promotions stack.
func (s *Store) ApplyPromotion(id string, pct float64) (models.Product, error) {
	if pct < 0 || pct > 100 {
		return models.Product{}, ErrInvalidDiscount
	}
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrProductNotFound
	}
	p := s.products[i]
	p.CurrentPrice = pricing.PromotionPrice(p.CurrentPrice, pct)
	s.products[i] = p
	entry := s.appendLogLocked(models.AgentPricing, "PROMOTION",
		fmt.Sprintf("Applied %s%% discount to %s. New price: %s", formatPercent(pct), p.Name, pricing.FormatPrice(p.CurrentPrice)),
		models.LogInfo)
	s.unlockAndEmit(productEvent(p), logEvent(entry))
	return p, nil
}

// AddQuery stores a new query at the head of the list and logs its receipt.
// An empty status means pending.
func (s *Store) AddQuery(q models.CustomerQuery) (models.CustomerQuery, error) {
	if q.Status == "" {
		q.Status = models.QueryPending
	}
	switch q.Status {
	case models.QueryPending, models.QueryResolved, models.QueryEscalated:
	default:
		return models.CustomerQuery{}, fmt.Errorf("%w: status %q", ErrInvalidQuery, q.Status)
	}
	if strings.TrimSpace(q.CustomerName) == "" || strings.TrimSpace(q.Query) == "" {
		return models.CustomerQuery{}, fmt.Errorf("%w: customer name and query text required", ErrInvalidQuery)
	}
	if q.QueryType == "" {
		q.QueryType = models.QueryTypeGeneral
	}

	s.mu.Lock()
	q.ID = s.newID()
	q.Timestamp = s.clock.Now().UTC()
	s.queries = append([]models.CustomerQuery{q}, s.queries...)
	status := models.LogWarning
	if q.Status == models.QueryResolved {
		status = models.LogSuccess
	}
	entry := s.appendLogLocked(models.AgentCustomer, "QUERY_RECEIVED",
		fmt.Sprintf("From %s: \"%s...\"", q.CustomerName, preview(q.Query)),
		status)
	s.unlockAndEmit(queryEvent(q), logEvent(entry))
	return q, nil
}

// ResolveQuery marks a query resolved. Resolving twice is not an error.
func (s *Store) ResolveQuery(id string) (models.CustomerQuery, error) {
	s.mu.Lock()
	for i, q := range s.queries {
		if q.ID != id {
			continue
		}
		if q.Status == models.QueryResolved {
			s.mu.Unlock()
			return q, nil
		}
		q.Status = models.QueryResolved
		s.queries[i] = q
		s.unlockAndEmit(queryEvent(q))
		return q, nil
	}
	s.mu.Unlock()
	return models.CustomerQuery{}, ErrQueryNotFound
}

// AddAgentLog appends an entry to the tape.
func (s *Store) AddAgentLog(l models.AgentLog) (models.AgentLog, error) {
	switch l.Agent {
	case models.AgentInventory, models.AgentPricing, models.AgentCustomer:
	default:
		return models.AgentLog{}, fmt.Errorf("%w: agent %q", ErrInvalidLog, l.Agent)
	}
	if l.Status == "" {
		l.Status = models.LogInfo
	}
	switch l.Status {
	case models.LogSuccess, models.LogWarning, models.LogError, models.LogInfo:
	default:
		return models.AgentLog{}, fmt.Errorf("%w: status %q", ErrInvalidLog, l.Status)
	}
	s.mu.Lock()
	entry := s.appendLogLocked(l.Agent, l.Action, l.Details, l.Status)
	s.unlockAndEmit(logEvent(entry))
	return entry, nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > queryPreviewRunes {
		r = r[:queryPreviewRunes]
	}
	return string(r)
}

func formatPercent(pct float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", pct), "0"), ".")
}
