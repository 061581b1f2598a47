package entity

import (
	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// Field wraps an extracted value with how sure we are about it and where it came from.
// A zero Confidence with an empty Value means the document did not carry the field.
type Field[T any] struct {
	Value      T                     `json:"value"`
	Confidence float64               `json:"confidence"`
	Source     constants.FieldSource `json:"source"`
	Anomalies  []string              `json:"anomalies,omitempty"`
}

// NewField builds a Field with no anomalies.
func NewField[T any](v T, confidence float64, source constants.FieldSource) Field[T] {
	return Field[T]{Value: v, Confidence: confidence, Source: source}
}

// DraftHeader carries the document-level fields of a debit sheet.
type DraftHeader struct {
	OrderNumber     Field[string] `json:"order_number"`
	ARCNumber       Field[string] `json:"arc_number"`
	OrderDate       Field[string] `json:"order_date"`
	DueDate         Field[string] `json:"due_date"`
	ClientName      Field[string] `json:"client_name"`
	SiteReference   Field[string] `json:"site_reference"`
	SalespersonCode Field[string] `json:"salesperson_code"`
}

// LineItem is one production line. Exactly one of AreaM2 and VolumeM3 is set
// unless the material code could not be classified.
type LineItem struct {
	Description      string   `json:"description"`
	MaterialName     string   `json:"material_name"`
	Finish           string   `json:"finish"`
	LengthCm         float64  `json:"length_cm"`
	WidthCm          float64  `json:"width_cm"`
	ThicknessCm      float64  `json:"thickness_cm"`
	PieceCount       int      `json:"piece_count"`
	DeclaredQuantity float64  `json:"declared_quantity"`
	AreaM2           *float64 `json:"area_m2"`
	VolumeM3         *float64 `json:"volume_m3"`
	Reference        string   `json:"reference,omitempty"`
	Anomalies        []string `json:"anomalies,omitempty"`
}

// DebitOrderDraft is the canonical, in-memory result of extraction.
type DebitOrderDraft struct {
	Header                DraftHeader       `json:"header"`
	RawHeader             map[string]string `json:"raw_header,omitempty"`
	Items                 []LineItem        `json:"items"`
	DeclaredTotalQuantity Field[*float64]   `json:"declared_total_quantity"`
	ComputedTotalArea     float64           `json:"computed_total_area"`
	ComputedTotalVolume   float64           `json:"computed_total_volume"`
	OverallConfidence     float64           `json:"overall_confidence"`
	Warnings              []string          `json:"warnings"`
}

// ComputeTotals sums the area and volume of every line.
func (d *DebitOrderDraft) ComputeTotals() {
	var area, volume float64
	for _, it := range d.Items {
		if it.AreaM2 != nil {
			area += *it.AreaM2
		}
		if it.VolumeM3 != nil {
			volume += *it.VolumeM3
		}
	}
	d.ComputedTotalArea = area
	d.ComputedTotalVolume = volume
}

// AddWarning appends w unless it is already present.
func (d *DebitOrderDraft) AddWarning(w string) {
	for _, existing := range d.Warnings {
		if existing == w {
			return
		}
	}
	d.Warnings = append(d.Warnings, w)
}
