package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// ExtractionLogEntry is the append-only audit record of one extraction attempt.
type ExtractionLogEntry struct {
	ID             uuid.UUID                  `json:"id"`
	Timestamp      time.Time                  `json:"timestamp"`
	RequestID      string                     `json:"request_id,omitempty"`
	DocumentName   string                     `json:"document_name"`
	Method         constants.ExtractionMethod `json:"method"`
	Status         constants.ExtractionStatus `json:"status"`
	RawModelSample string                     `json:"raw_model_sample,omitempty"`
	ParsedDraft    json.RawMessage            `json:"parsed_draft,omitempty"`
	Warnings       []string                   `json:"warnings"`
	Confidence     float64                    `json:"confidence"`
	DurationMs     int64                      `json:"duration_ms"`
	ErrorMessage   string                     `json:"error_message,omitempty"`
	OrderID        *uuid.UUID                 `json:"order_id,omitempty"`
	SubmittedBy    string                     `json:"submitted_by,omitempty"`
	PromptVersion  string                     `json:"prompt_version,omitempty"`
}
