package domain

// CatalogItem is reference data for one purchasable item. Read-only from the
// engine's perspective.
type CatalogItem struct {
	ID    ItemID  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
