package constants

// ExtractionStatus is the canonical outcome stored on every extraction_logs row.
type ExtractionStatus string

// Stable values (store these exact strings in DB).
const (
	StatusSuccess     ExtractionStatus = "success"
	StatusNeedsReview ExtractionStatus = "needs_review"
	StatusError       ExtractionStatus = "error"
)

// ExtractionMethod records which path produced the draft.
type ExtractionMethod string

const (
	MethodModelDocument  ExtractionMethod = "model_document"  // document bytes sent inline to a vision model
	MethodModelText      ExtractionMethod = "model_text"      // extracted text excerpt sent to a text model
	MethodLayoutFallback ExtractionMethod = "layout_fallback" // coordinate-based table reconstruction
	MethodNone           ExtractionMethod = "none"            // failed before any method produced output
)

// FieldSource tells where an extracted value came from.
type FieldSource string

const (
	SourceModel     FieldSource = "model"
	SourceHeuristic FieldSource = "heuristic"
)

// ExtractionStatuses lists every stored status value.
var ExtractionStatuses = []string{
	string(StatusSuccess),
	string(StatusNeedsReview),
	string(StatusError),
}

// ExtractionMethods lists every stored method value.
var ExtractionMethods = []string{
	string(MethodModelDocument),
	string(MethodModelText),
	string(MethodLayoutFallback),
	string(MethodNone),
}
