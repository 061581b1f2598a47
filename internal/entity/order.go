package entity

import (
	"time"

	"github.com/google/uuid"
)

// Order is a persisted debit sheet for data transfer between layers.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	OrderNumber     string      `json:"order_number"`
	ARCNumber       *string     `json:"arc_number,omitempty"`
	OrderDate       string      `json:"order_date,omitempty"`
	DueDate         string      `json:"due_date,omitempty"`
	ClientName      string      `json:"client_name"`
	SiteReference   string      `json:"site_reference,omitempty"`
	SalespersonCode string      `json:"salesperson_code,omitempty"`
	Material        string      `json:"material"`
	Thickness       string      `json:"thickness"`
	TotalArea       float64     `json:"total_area"`
	TotalVolume     float64     `json:"total_volume"`
	DeclaredTotal   *float64    `json:"declared_total,omitempty"`
	Confidence      float64     `json:"confidence"`
	NeedsReview     bool        `json:"needs_review"`
	SourceDocument  string      `json:"source_document"`
	SubmittedBy     string      `json:"submitted_by,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

// OrderItem is a persisted line of an Order.
type OrderItem struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	Position         int       `json:"position"`
	Description      string    `json:"description"`
	MaterialName     string    `json:"material_name"`
	Finish           string    `json:"finish"`
	LengthCm         float64   `json:"length_cm"`
	WidthCm          float64   `json:"width_cm"`
	ThicknessCm      float64   `json:"thickness_cm"`
	PieceCount       int       `json:"piece_count"`
	DeclaredQuantity float64   `json:"declared_quantity"`
	AreaM2           *float64  `json:"area_m2"`
	VolumeM3         *float64  `json:"volume_m3"`
	CatalogID        *string   `json:"catalog_id"`
	Matched          bool      `json:"matched"`
}
