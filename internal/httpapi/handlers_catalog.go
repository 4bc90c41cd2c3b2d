package httpapi

import (
	"net/http"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

func (a *App) handleProducts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, a.Market.Products())
}

// handleProduct serves /products/{id} and /products/{id}/{action}.
func (a *App) handleProduct(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/products/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 1 {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		p, err := a.Market.Product(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, p)
		return
	}

	var (
		p   models.Product
		err error
	)
	switch parts[1] {
	case "reorder":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var body struct {
			Quantity int `json:"quantity"`
		}
		if err = decodeJSON(r, &body); err == nil {
			p, err = a.Market.ReorderProduct(id, body.Quantity)
		}
	case "adjust":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var body struct {
			DemandLevel string `json:"demand_level"`
		}
		if err = decodeJSON(r, &body); err == nil {
			p, err = a.Market.AdjustPrice(id, body.DemandLevel)
		}
	case "price":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var body struct {
			Price *float64 `json:"price"`
		}
		if err = decodeJSON(r, &body); err == nil {
			if body.Price == nil {
				writeJSONError(w, http.StatusBadRequest, "price required")
				return
			}
			p, err = a.Market.SetPrice(id, *body.Price)
		}
	case "promotion":
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		var body struct {
			DiscountPercent *float64 `json:"discount_percent"`
		}
		if err = decodeJSON(r, &body); err == nil {
			pct := float64(models.DefaultPromotionPercent)
			if body.DiscountPercent != nil {
				pct = *body.DiscountPercent
			}
			p, err = a.Market.ApplyPromotion(id, pct)
		}
	case "stock":
		if !allowMethod(w, r, http.MethodPut) {
			return
		}
		var body struct {
			Stock *int `json:"stock"`
		}
		if err = decodeJSON(r, &body); err == nil {
			if body.Stock == nil {
				writeJSONError(w, http.StatusBadRequest, "stock required")
				return
			}
			p, err = a.Market.UpdateStock(id, *body.Stock)
		}
	default:
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}
