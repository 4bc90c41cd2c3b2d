package models

// Demand levels.
const (
	DemandLow    = "low"
	DemandMedium = "medium"
	DemandHigh   = "high"
)

// Agents that tag log entries.
const (
	AgentInventory = "inventory"
	AgentPricing   = "pricing"
	AgentCustomer  = "customer"
)

// Log entry statuses.
const (
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
	LogInfo    = "info"
)

// Customer query statuses.
const (
	QueryPending   = "pending"
	QueryResolved  = "resolved"
	QueryEscalated = "escalated"
)

// QueryTypeGeneral is used when no keyword matched.
const QueryTypeGeneral = "general"

// Product categories.
const (
	CategoryDairy     = "Dairy"
	CategoryBakery    = "Bakery"
	CategoryProduce   = "Produce"
	CategoryMeat      = "Meat"
	CategoryPoultry   = "Meat & Poultry"
	CategorySeafood   = "Seafood"
	CategoryBeverages = "Beverages"
	CategorySnacks    = "Snacks"
	CategoryFrozen    = "Frozen"
	CategoryPantry    = "Pantry"
	CategoryCondiment = "Condiments"
	CategoryHousehold = "Health & Household"
	CategoryDeli      = "Deli"
)

// Categories lists every accepted product category.
var Categories = []string{
	CategoryDairy, CategoryBakery, CategoryProduce, CategoryMeat, CategoryPoultry,
	CategorySeafood, CategoryBeverages, CategorySnacks, CategoryFrozen, CategoryPantry,
	CategoryCondiment, CategoryHousehold, CategoryDeli,
}

// ValidDemandLevel reports whether s is low, medium or high.
func ValidDemandLevel(s string) bool {
	return s == DemandLow || s == DemandMedium || s == DemandHigh
}

// ValidCategory reports whether s is a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultLogCapacity         = 50
	DefaultQueryListLimit      = 500
	DefaultBackupListLimit     = 20
	DefaultSSEChannelBuffer    = 256
	DefaultSSEReplay           = 100
	DefaultPromotionPercent    = 15
)
