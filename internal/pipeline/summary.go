package pipeline

import (
	"github.com/google/uuid"
)

// HeaderSummary is the header part of the success payload.
type HeaderSummary struct {
	OrderNumber   string `json:"orderNumber"`
	ARCNumber     string `json:"arcNumber"`
	ClientName    string `json:"clientName"`
	DueDate       string `json:"dueDate"`
	OrderDate     string `json:"orderDate"`
	SiteReference string `json:"siteReference"`
	Salesperson   string `json:"salesperson"`
}

// Summary is the success payload returned to API callers.
type Summary struct {
	Success                bool          `json:"success"`
	OrderID                *uuid.UUID    `json:"orderId"`
	ItemsCount             int           `json:"itemsCount"`
	TotalArea              float64       `json:"totalArea"`
	TotalVolume            float64       `json:"totalVolume"`
	Confidence             float64       `json:"confidence"`
	Warnings               []string      `json:"warnings"`
	ProcessingTimeMs       int64         `json:"processingTimeMs"`
	ExtractedHeaderSummary HeaderSummary `json:"extractedHeaderSummary"`
	Status                 string        `json:"status"`
	Method                 string        `json:"method"`
	UnknownReferences      []string      `json:"unknownReferences"`
}

func (r *Result) Summary() Summary {
	s := Summary{
		Success:           true,
		OrderID:           r.OrderID,
		Warnings:          r.Warnings,
		ProcessingTimeMs:  r.ProcessingTime.Milliseconds(),
		Status:            string(r.Status),
		Method:            string(r.Method),
		UnknownReferences: r.Reconciliation.UnknownReferences,
	}
	if s.Warnings == nil {
		s.Warnings = []string{}
	}
	if s.UnknownReferences == nil {
		s.UnknownReferences = []string{}
	}
	if d := r.Draft; d != nil {
		s.ItemsCount = len(d.Items)
		s.TotalArea = d.ComputedTotalArea
		s.TotalVolume = d.ComputedTotalVolume
		s.Confidence = d.OverallConfidence
		s.ExtractedHeaderSummary = HeaderSummary{
			OrderNumber:   d.Header.OrderNumber.Value,
			ARCNumber:     d.Header.ARCNumber.Value,
			ClientName:    d.Header.ClientName.Value,
			DueDate:       d.Header.DueDate.Value,
			OrderDate:     d.Header.OrderDate.Value,
			SiteReference: d.Header.SiteReference.Value,
			Salesperson:   d.Header.SalespersonCode.Value,
		}
	}
	return s
}
