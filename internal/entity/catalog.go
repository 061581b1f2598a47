package entity

// CatalogReference is one row of the master material/equipment list.
type CatalogReference struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	UnitWeight  float64 `json:"unit_weight"`
}

// MatchedLineItem is a LineItem after catalog matching.
type MatchedLineItem struct {
	LineItem
	CatalogID *string `json:"catalog_id"`
	Matched   bool    `json:"matched"`
}
