package market

import (
	"fmt"
	"os"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"gopkg.in/yaml.v3"
)

// SeedCatalog returns the built-in eight-product catalog.
func SeedCatalog() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Milk", Stock: 150, ReorderLevel: 50, DemandForecast: 45, BasePrice: 3.50, CurrentPrice: 3.50, DemandLevel: models.DemandMedium, Category: models.CategoryDairy},
		{ID: "2", Name: "Bread", Stock: 200, ReorderLevel: 75, DemandForecast: 60, BasePrice: 2.50, CurrentPrice: 2.50, DemandLevel: models.DemandHigh, Category: models.CategoryBakery},
		{ID: "3", Name: "Eggs", Stock: 300, ReorderLevel: 100, DemandForecast: 80, BasePrice: 4.00, CurrentPrice: 4.00, DemandLevel: models.DemandMedium, Category: models.CategoryDairy},
		{ID: "4", Name: "Cheese", Stock: 80, ReorderLevel: 30, DemandForecast: 35, BasePrice: 6.00, CurrentPrice: 6.00, DemandLevel: models.DemandLow, Category: models.CategoryDairy},
		{ID: "5", Name: "Yogurt", Stock: 120, ReorderLevel: 40, DemandForecast: 50, BasePrice: 2.00, CurrentPrice: 2.00, DemandLevel: models.DemandHigh, Category: models.CategoryDairy},
		{ID: "6", Name: "Apples", Stock: 45, ReorderLevel: 60, DemandForecast: 70, BasePrice: 1.50, CurrentPrice: 1.50, DemandLevel: models.DemandHigh, Category: models.CategoryProduce},
		{ID: "7", Name: "Orange Juice", Stock: 90, ReorderLevel: 35, DemandForecast: 40, BasePrice: 4.50, CurrentPrice: 4.50, DemandLevel: models.DemandMedium, Category: models.CategoryBeverages},
		{ID: "8", Name: "Chicken", Stock: 25, ReorderLevel: 30, DemandForecast: 55, BasePrice: 8.00, CurrentPrice: 8.00, DemandLevel: models.DemandHigh, Category: models.CategoryMeat},
	}
}

type catalogFile struct {
	Products []models.Product `yaml:"products"`
}

// LoadCatalog reads a YAML catalog:
//
//	products:
//	  - id: "101"
//	    name: Salmon
//	    category: Seafood
//	    stock: 40
//	    reorder_level: 20
//	    demand_forecast: 18
//	    base_price: 12.99
//	    demand_level: medium
//
// current_price defaults to base_price.
func LoadCatalog(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog %s has no products", path)
	}
	seen := make(map[string]bool, len(f.Products))
	for i := range f.Products {
		p := &f.Products[i]
		if p.CurrentPrice == 0 {
			p.CurrentPrice = p.BasePrice
		}
		if err := ValidateProduct(*p); err != nil {
			return nil, fmt.Errorf("catalog %s entry %d: %w", path, i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog %s: duplicate product id %q", path, p.ID)
		}
		seen[p.ID] = true
	}
	return f.Products, nil
}

// ValidateProduct checks the catalog invariants for one product.
func ValidateProduct(p models.Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("product id required")
	case p.Name == "":
		return fmt.Errorf("product %s: name required", p.ID)
	case !models.ValidCategory(p.Category):
		return fmt.Errorf("product %s: unknown category %q", p.ID, p.Category)
	case !models.ValidDemandLevel(p.DemandLevel):
		return fmt.Errorf("product %s: %w", p.ID, ErrInvalidDemand)
	case p.Stock < 0:
		return fmt.Errorf("product %s: %w", p.ID, ErrInvalidStock)
	case p.BasePrice < 0 || p.CurrentPrice < 0:
		return fmt.Errorf("product %s: %w", p.ID, ErrInvalidPrice)
	case p.ReorderLevel < 0 || p.DemandForecast < 0:
		return fmt.Errorf("product %s: reorder level and forecast must not be negative", p.ID)
	}
	return nil
}
